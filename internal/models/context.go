/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "context"

type originContextKey struct{}

// Origin identifies who initiated a financial mutation (api, bot, admin,
// payout-scheduler). It travels through context so the ledger can log it
// without widening every service signature.
type Origin struct {
	Source  string
	ActorId string
}

// WithOrigin attaches the mutation origin to a context.
func WithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

// OriginFrom retrieves the mutation origin, defaulting to "unknown".
func OriginFrom(ctx context.Context) Origin {
	if o, ok := ctx.Value(originContextKey{}).(Origin); ok {
		return o
	}
	return Origin{Source: "unknown"}
}
