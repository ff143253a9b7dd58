// Package mocks provides func-field mock implementations of the interfaces
// shared across packages. Each mock falls back to its default fields when
// the corresponding function field is nil.
//
//	tokens := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return nil, auth.ErrExpiredToken
//	    },
//	}
package mocks
