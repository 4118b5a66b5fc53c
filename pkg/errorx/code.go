package errorx

type Code int

const (
	// Common codes
	BadRequest      Code = 100001
	BadResponse     Code = 100002
	NotFound        Code = 100003
	Unauthenticated Code = 100004
	Internal        Code = 100005
	Unavailable     Code = 100006
	TooManyRequests Code = 100007

	// OAuth handshake codes
	OAuthDenied                Code = 200001
	OAuthMalformedCallback     Code = 200002
	OAuthExpiredOrMissingState Code = 200003
	OAuthStateMismatch         Code = 200004
	OAuthTokenExchangeFailed   Code = 200005
	OAuthIdentityFetchFailed   Code = 200006

	// Token lifecycle codes
	TokenRefreshFailed Code = 300001
	DecryptionFailed   Code = 300002

	// Poll codes
	RateLimited          Code = 400001
	UpstreamSearchFailed Code = 400002
	StorageWriteFailed   Code = 400003
)
