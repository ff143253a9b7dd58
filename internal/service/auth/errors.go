package auth

import "errors"

// Token validation failures. The API answers all of them with 401; only
// ErrExpiredToken gets its own message so clients know to refresh.
var (
	ErrInvalidToken     = errors.New("invalid authentication token")
	ErrExpiredToken     = errors.New("authentication token has expired")
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")
	// ErrMissingToken is returned for an empty token string, as sent by a
	// websocket client that forgot the token query parameter.
	ErrMissingToken = errors.New("authentication token is missing")
	// ErrWrongTokenType rejects signed tokens whose type claim is not "access".
	ErrWrongTokenType = errors.New("wrong token type")
)
