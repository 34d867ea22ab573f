// Package domain holds primitive identifiers shared across modules.
//
// Parse functions are the trust boundary: anything that crosses into a service
// from a transport goes through one of them.
package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "anima/pkg/domain-errors"
)

// PrincipalID identifies a caller. It is supplied by the trusted transport layer
// (the subject of a verified token), never by a request body.
type PrincipalID uuid.UUID

func (p PrincipalID) String() string { return uuid.UUID(p).String() }

func (p PrincipalID) IsNil() bool { return uuid.UUID(p) == uuid.Nil }

// ParsePrincipalID validates a non-nil UUID principal.
func ParsePrincipalID(s string) (PrincipalID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return PrincipalID{}, err
	}
	return PrincipalID(u), nil
}

// Memo is the caller-chosen key of a payment intent.
type Memo uint64

func (m Memo) String() string { return strconv.FormatUint(uint64(m), 10) }

// ParseMemo parses a decimal memo.
func ParseMemo(s string) (Memo, error) {
	v, err := parseUint(s, "memo")
	return Memo(v), err
}

// AssetID identifies a minted asset. Values are allocated by the registry counter.
type AssetID uint64

func (a AssetID) String() string { return strconv.FormatUint(uint64(a), 10) }

// Designation renders the fixed-width label for an asset identifier.
func (a AssetID) Designation() string {
	return fmt.Sprintf("ANIMA-%08X", uint64(a))
}

// ParseAssetID parses a decimal asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	v, err := parseUint(s, "asset id")
	return AssetID(v), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be nil")
	}
	return u, nil
}

func parseUint(s, field string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, field+" must be an unsigned integer")
	}
	return v, nil
}
