// Package jid implements the XMPP address format ("Jabber ID") described in
// RFC 7622: localpart@domainpart/resourcepart.
package jid

import (
	"encoding/xml"
	"errors"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/secure/precis"
)

// JID is an immutable, validated XMPP address. The zero value is not a valid
// JID; construct one with Parse or MustParse.
type JID struct {
	localpart    string
	domainpart   string
	resourcepart string
}

// Parse constructs a JID from its string representation, applying the
// preparation and enforcement rules of RFC 7622 §3.2 to each part so that two
// JIDs that are octet-for-octet equal after parsing denote the same address.
func Parse(s string) (JID, error) {
	localpart, domainpart, resourcepart, err := SplitString(s)
	if err != nil {
		return JID{}, err
	}
	return FromParts(localpart, domainpart, resourcepart)
}

// MustParse is like Parse but panics if s is not a valid JID. It is intended
// for use in tests and package-level variable initializers.
func MustParse(s string) JID {
	j, err := Parse(s)
	if err != nil {
		panic("jid: " + err.Error())
	}
	return j
}

// FromParts constructs a JID from its already-split localpart, domainpart,
// and resourcepart, applying normalization and validation to each.
func FromParts(localpart, domainpart, resourcepart string) (JID, error) {
	if !utf8.ValidString(localpart) || !utf8.ValidString(resourcepart) {
		return JID{}, errors.New("jid: part contains invalid UTF-8")
	}

	// RFC 7622 §3.2.1: domainpart A-labels are converted to U-labels.
	domainpart, err := idna.ToUnicode(domainpart)
	if err != nil {
		return JID{}, err
	}
	if !utf8.ValidString(domainpart) {
		return JID{}, errors.New("jid: domainpart contains invalid UTF-8")
	}

	if localpart != "" {
		localpart, err = precis.UsernameCaseMapped.String(localpart)
		if err != nil {
			return JID{}, err
		}
	}
	if resourcepart != "" {
		resourcepart, err = precis.OpaqueString.String(resourcepart)
		if err != nil {
			return JID{}, err
		}
	}

	if err := commonChecks(localpart, domainpart, resourcepart); err != nil {
		return JID{}, err
	}

	return JID{localpart: localpart, domainpart: domainpart, resourcepart: resourcepart}, nil
}

// Localpart returns the localpart of the JID (e.g. "user"), or "" if unset.
func (j JID) Localpart() string { return j.localpart }

// Domainpart returns the domainpart of the JID (e.g. "example.net").
func (j JID) Domainpart() string { return j.domainpart }

// Resourcepart returns the resourcepart of the JID, or "" if unset.
func (j JID) Resourcepart() string { return j.resourcepart }

// Bare returns a copy of the JID with the resourcepart removed.
func (j JID) Bare() JID {
	j.resourcepart = ""
	return j
}

// Domain returns a copy of the JID with only the domainpart set.
func (j JID) Domain() JID {
	return JID{domainpart: j.domainpart}
}

// WithResource returns a copy of the JID with the resourcepart replaced.
// An empty resource produces a bare JID.
func (j JID) WithResource(resourcepart string) (JID, error) {
	return FromParts(j.localpart, j.domainpart, resourcepart)
}

// IsZero reports whether j is the zero JID.
func (j JID) IsZero() bool {
	return j.localpart == "" && j.domainpart == "" && j.resourcepart == ""
}

// Equal performs an octet-for-octet comparison with other.
func (j JID) Equal(other JID) bool {
	return j.localpart == other.localpart &&
		j.domainpart == other.domainpart &&
		j.resourcepart == other.resourcepart
}

// String returns the string representation of the JID.
func (j JID) String() string {
	var sb strings.Builder
	if j.localpart != "" {
		sb.WriteString(j.localpart)
		sb.WriteByte('@')
	}
	sb.WriteString(j.domainpart)
	if j.resourcepart != "" {
		sb.WriteByte('/')
		sb.WriteString(j.resourcepart)
	}
	return sb.String()
}

// MarshalXMLAttr satisfies xml.MarshalerAttr.
func (j JID) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	if j.IsZero() {
		return xml.Attr{}, nil
	}
	return xml.Attr{Name: name, Value: j.String()}, nil
}

// UnmarshalXMLAttr satisfies xml.UnmarshalerAttr.
func (j *JID) UnmarshalXMLAttr(attr xml.Attr) error {
	if attr.Value == "" {
		*j = JID{}
		return nil
	}
	parsed, err := Parse(attr.Value)
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// SplitString splits the string representation of a JID into its component
// parts without validating or normalizing them. Each part is guaranteed to
// be 1023 bytes or less is NOT checked here; use FromParts for that.
func SplitString(s string) (localpart, domainpart, resourcepart string, err error) {
	// RFC 7622 §3.1: match the separator characters '@' and '/' before
	// applying any transformation algorithm that might otherwise produce
	// code points that decompose to the separators.
	parts := strings.SplitAfterN(s, "/", 2)

	if strings.HasSuffix(parts[0], "/") {
		if len(parts) == 2 && parts[1] != "" {
			resourcepart = parts[1]
		} else {
			return "", "", "", errors.New("jid: resourcepart must be larger than 0 bytes")
		}
	}

	norp := strings.TrimSuffix(parts[0], "/")
	nolp := strings.SplitAfterN(norp, "@", 2)
	if nolp[0] == "@" {
		return "", "", "", errors.New("jid: localpart must be larger than 0 bytes")
	}

	switch len(nolp) {
	case 1:
		domainpart = nolp[0]
	case 2:
		domainpart = nolp[1]
		localpart = strings.TrimSuffix(nolp[0], "@")
	}

	// RFC 7622 §3.2: a trailing label separator is stripped before any other
	// canonicalization.
	domainpart = strings.TrimSuffix(domainpart, ".")

	return localpart, domainpart, resourcepart, nil
}

func commonChecks(localpart, domainpart, resourcepart string) error {
	if len(localpart) > 1023 {
		return errors.New("jid: localpart must be smaller than 1024 bytes")
	}
	// RFC 7622 §3.3.1 forbids these even though the precis profile allows them.
	if strings.ContainsAny(localpart, "\"&'/:<>@") {
		return errors.New("jid: localpart contains forbidden characters")
	}
	if len(resourcepart) > 1023 {
		return errors.New("jid: resourcepart must be smaller than 1024 bytes")
	}
	l := len(domainpart)
	if l < 1 || l > 1023 {
		return errors.New("jid: domainpart must be between 1 and 1023 bytes")
	}
	return checkIP6String(domainpart)
}

func checkIP6String(domainpart string) error {
	if l := len(domainpart); l > 2 && strings.HasPrefix(domainpart, "[") && strings.HasSuffix(domainpart, "]") {
		if ip := net.ParseIP(domainpart[1 : l-1]); ip == nil || ip.To4() != nil {
			return errors.New("jid: domainpart is not a valid IPv6 address")
		}
	}
	return nil
}
