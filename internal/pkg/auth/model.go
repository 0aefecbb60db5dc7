package auth

const (
	IdentityHeader  = "X-Identity"
	TimestampHeader = "X-Timestamp"
	SignatureHeader = "X-Signature"

	identityKey = "identity"
)

type Token struct {
	Identity  string `json:"identity"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}
