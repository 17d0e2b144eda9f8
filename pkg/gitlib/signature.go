package gitlib

import (
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// Signature represents a git signature (author/committer). When keeps the
// author's original UTC offset.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// Seconds returns the signature time as seconds since the Unix epoch.
func (s Signature) Seconds() int64 {
	return s.When.Unix()
}

func signatureFromNative(sig *git2go.Signature) Signature {
	if sig == nil {
		return Signature{}
	}

	return Signature{
		Name:  sig.Name,
		Email: sig.Email,
		When:  sig.When,
	}
}
