// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package moderation records moderator actions in a change log.
package moderation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/newsgate/rpc/binstream"
)

// ChangeVersion is the only layout of the change records this build reads.
const ChangeVersion = 1

// Type classifies a change log entry. The values are stored in the log
// and must not be renumbered.
type Type uint32

const (
	TypeModeratorLogin Type = iota
	TypeModeratorLogout
	TypeCategoryChange
)

func (t Type) String() string {
	switch t {
	case TypeModeratorLogin:
		return "moderator_login"
	case TypeModeratorLogout:
		return "moderator_logout"
	case TypeCategoryChange:
		return "category_change"
	default:
		return "type(" + strconv.FormatUint(uint64(t), 10) + ")"
	}
}

// Entry is one loggable change.
type Entry interface {
	binstream.Codec
	Author() Change
	Type() Type
	Subtype() uint32
	URL() string
	Summary() string
	Details() string
}

// Change identifies who made a change and from where.
type Change struct {
	ModeratorID   uint64
	ModeratorName string
	IP            string
}

// Author returns c. It lets every entry expose the moderator that made it.
func (c Change) Author() Change { return c }

func (c *Change) Encode(w *binstream.Writer) error {
	w.WriteVersion(ChangeVersion)
	w.WriteUint64(c.ModeratorID)
	w.WriteString(c.ModeratorName)
	w.WriteString(c.IP)
	return nil
}

func (c *Change) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(ChangeVersion); err != nil {
		return err
	}
	c.ModeratorID = r.ReadUint64()
	c.ModeratorName = r.ReadString()
	c.IP = r.ReadString()
	return r.Err()
}

func (c Change) accountURL() string {
	return "/psp/account/update?i=" + strconv.FormatUint(c.ModeratorID, 10)
}

// LoginResult is the subtype of a login entry.
type LoginResult uint32

const (
	LoginSuccess LoginResult = iota
	LoginNoUser
	LoginWrongPassword
	LoginDisabled
	loginResults
)

// ModeratorLogin records a login attempt.
type ModeratorLogin struct {
	Change
	Result LoginResult
}

func (*ModeratorLogin) Type() Type        { return TypeModeratorLogin }
func (m *ModeratorLogin) Subtype() uint32 { return uint32(m.Result) }
func (m *ModeratorLogin) URL() string     { return m.accountURL() }

func (m *ModeratorLogin) Summary() string {
	switch m.Result {
	case LoginSuccess:
		return "Login successful"
	case LoginNoUser:
		return "Login failed - wrong user"
	case LoginWrongPassword:
		return "Login failed - wrong password"
	default:
		return "Login failed - account disabled"
	}
}

func (m *ModeratorLogin) Details() string {
	return fmt.Sprintf("Moderator %s (%d) from %s", m.ModeratorName, m.ModeratorID, m.IP)
}

func (m *ModeratorLogin) Encode(w *binstream.Writer) error {
	w.WriteVersion(ChangeVersion)
	if err := m.Change.Encode(w); err != nil {
		return err
	}
	w.WriteUint32(uint32(m.Result))
	return nil
}

func (m *ModeratorLogin) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(ChangeVersion); err != nil {
		return err
	}
	if err := m.Change.Decode(r); err != nil {
		return err
	}
	m.Result = LoginResult(r.ReadUint32())
	if r.Err() == nil && m.Result >= loginResults {
		r.Fail(fmt.Errorf("%w: login result %d", binstream.ErrMalformedPayload, m.Result))
	}
	return r.Err()
}

// LogoutReason is the subtype of a logout entry.
type LogoutReason uint32

const (
	LogoutManual LogoutReason = iota
	LogoutRelogin
	LogoutDisabled
	LogoutTimeout
	logoutReasons
)

// ModeratorLogout records the end of a moderator session.
type ModeratorLogout struct {
	Change
	Reason LogoutReason
}

func (*ModeratorLogout) Type() Type        { return TypeModeratorLogout }
func (m *ModeratorLogout) Subtype() uint32 { return uint32(m.Reason) }
func (m *ModeratorLogout) URL() string     { return m.accountURL() }

func (m *ModeratorLogout) Summary() string {
	switch m.Reason {
	case LogoutManual:
		return "Logout manual"
	case LogoutRelogin:
		return "Logout by relogin"
	case LogoutDisabled:
		return "Logout as account disabled"
	default:
		return "Logout by timeout"
	}
}

func (m *ModeratorLogout) Details() string {
	return fmt.Sprintf("Moderator %s (%d) from %s", m.ModeratorName, m.ModeratorID, m.IP)
}

func (m *ModeratorLogout) Encode(w *binstream.Writer) error {
	w.WriteVersion(ChangeVersion)
	if err := m.Change.Encode(w); err != nil {
		return err
	}
	w.WriteUint32(uint32(m.Reason))
	return nil
}

func (m *ModeratorLogout) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(ChangeVersion); err != nil {
		return err
	}
	if err := m.Change.Decode(r); err != nil {
		return err
	}
	m.Reason = LogoutReason(r.ReadUint32())
	if r.Err() == nil && m.Reason >= logoutReasons {
		r.Fail(fmt.Errorf("%w: logout reason %d", binstream.ErrMalformedPayload, m.Reason))
	}
	return r.Err()
}

// CategorySubtype says what happened to a category.
type CategorySubtype uint32

const (
	CategoryCreated CategorySubtype = iota
	CategoryDeleted
	CategoryUpdated
	CategoryWordListUpdated
	CategoryMessagesUpdated
	CategoryUnknown
)

// Field bits of CategoryChange.Fields.
const (
	FieldName uint64 = 1 << iota
	FieldStatus
	FieldSearchable
	FieldLocales
	FieldWordLists
	FieldExpressions
	FieldIncludedMessages
	FieldExcludedMessages
	FieldParents
	FieldChildren
	FieldDescription
	FieldVersion
)

// CategoryChange records an edit of a category with old and new values
// of every field it touched.
type CategoryChange struct {
	Change
	CategoryID   uint64
	CategoryPath string
	Fields       uint64
	Sub          CategorySubtype

	NewVersion, OldVersion         uint64
	NewName, OldName               string
	NewDescription, OldDescription string
	NewStatus, OldStatus           uint16
	NewSearchable, OldSearchable   bool

	AddedIncluded, RemovedIncluded []uint64
	AddedExcluded, RemovedExcluded []uint64
}

func (*CategoryChange) Type() Type        { return TypeCategoryChange }
func (c *CategoryChange) Subtype() uint32 { return uint32(c.Sub) }

func (c *CategoryChange) URL() string {
	return "/psp/category/update?id=" + strconv.FormatUint(c.CategoryID, 10)
}

func (c *CategoryChange) Summary() string {
	switch c.Sub {
	case CategoryCreated:
		return "Category " + c.CategoryPath + " created"
	case CategoryDeleted:
		return "Category " + c.CategoryPath + " deleted"
	case CategoryWordListUpdated:
		return "Category " + c.CategoryPath + " word lists updated"
	case CategoryMessagesUpdated:
		return "Category " + c.CategoryPath + " messages updated"
	default:
		return "Category " + c.CategoryPath + " updated"
	}
}

// Details lists each changed field as "field: old -> new".
func (c *CategoryChange) Details() string {
	var b strings.Builder
	line := func(field string, from, to any) {
		fmt.Fprintf(&b, "%s: %v -> %v\n", field, from, to)
	}
	if c.Fields&FieldVersion != 0 {
		line("version", c.OldVersion, c.NewVersion)
	}
	if c.Fields&FieldName != 0 {
		line("name", c.OldName, c.NewName)
	}
	if c.Fields&FieldDescription != 0 {
		line("description", c.OldDescription, c.NewDescription)
	}
	if c.Fields&FieldStatus != 0 {
		line("status", c.OldStatus, c.NewStatus)
	}
	if c.Fields&FieldSearchable != 0 {
		line("searchable", c.OldSearchable, c.NewSearchable)
	}
	if c.Fields&FieldIncludedMessages != 0 {
		fmt.Fprintf(&b, "included messages: +%v -%v\n", c.AddedIncluded, c.RemovedIncluded)
	}
	if c.Fields&FieldExcludedMessages != 0 {
		fmt.Fprintf(&b, "excluded messages: +%v -%v\n", c.AddedExcluded, c.RemovedExcluded)
	}
	return b.String()
}

func (c *CategoryChange) Encode(w *binstream.Writer) error {
	w.WriteVersion(ChangeVersion)
	if err := c.Change.Encode(w); err != nil {
		return err
	}
	w.WriteUint64(c.CategoryID)
	w.WriteString(c.CategoryPath)
	w.WriteUint64(c.Fields)
	w.WriteUint32(uint32(c.Sub))
	w.WriteUint64(c.NewVersion)
	w.WriteUint64(c.OldVersion)
	w.WriteString(c.NewName)
	w.WriteString(c.OldName)
	w.WriteString(c.NewDescription)
	w.WriteString(c.OldDescription)
	w.WriteUint16(c.NewStatus)
	w.WriteUint16(c.OldStatus)
	w.WriteBool(c.NewSearchable)
	w.WriteBool(c.OldSearchable)
	w.WriteUint64s(c.AddedIncluded)
	w.WriteUint64s(c.RemovedIncluded)
	w.WriteUint64s(c.AddedExcluded)
	w.WriteUint64s(c.RemovedExcluded)
	return nil
}

func (c *CategoryChange) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(ChangeVersion); err != nil {
		return err
	}
	if err := c.Change.Decode(r); err != nil {
		return err
	}
	c.CategoryID = r.ReadUint64()
	c.CategoryPath = r.ReadString()
	c.Fields = r.ReadUint64()
	c.Sub = CategorySubtype(r.ReadUint32())
	c.NewVersion = r.ReadUint64()
	c.OldVersion = r.ReadUint64()
	c.NewName = r.ReadString()
	c.OldName = r.ReadString()
	c.NewDescription = r.ReadString()
	c.OldDescription = r.ReadString()
	c.NewStatus = r.ReadUint16()
	c.OldStatus = r.ReadUint16()
	c.NewSearchable = r.ReadBool()
	c.OldSearchable = r.ReadBool()
	c.AddedIncluded = r.ReadUint64s()
	c.RemovedIncluded = r.ReadUint64s()
	c.AddedExcluded = r.ReadUint64s()
	c.RemovedExcluded = r.ReadUint64s()
	if r.Err() == nil && c.Sub > CategoryUnknown {
		r.Fail(fmt.Errorf("%w: category subtype %d", binstream.ErrMalformedPayload, c.Sub))
	}
	return r.Err()
}

// newEntry returns an empty entry of type t.
func newEntry(t Type) (Entry, error) {
	switch t {
	case TypeModeratorLogin:
		return &ModeratorLogin{}, nil
	case TypeModeratorLogout:
		return &ModeratorLogout{}, nil
	case TypeCategoryChange:
		return &CategoryChange{}, nil
	default:
		return nil, fmt.Errorf("moderation: unknown change %s", t)
	}
}
