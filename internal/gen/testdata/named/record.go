package named

// AccountID is declared in a separate file to exercise cross-file type
// resolution; see types.go.

// Account keys on a locally named integer type. The binding converts it
// through the underlying kind.
type Account struct {
	ID      AccountID `store:"key"`
	Email   string    `store:"index"`
	Tier    Tier      `store:"index"`
	Balance int64
}
