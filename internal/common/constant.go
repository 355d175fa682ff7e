package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// TokenTypeBearer is reported as token_type in every issued credential.
const TokenTypeBearer = "bearer"
