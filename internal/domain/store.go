package domain

import (
	"context"
	"reflect"
	"strings"
	"time"
)

// Document is a loosely typed stored document. Values are strings, bools,
// float64 numbers, time.Time, nested Documents/maps and slices.
type Document map[string]any

// Clone returns a deep copy of the document
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(Document)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]any:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

type serverTimestamp struct{}

// ServerTimestamp is a merge value replaced by the store's write time.
var ServerTimestamp any = serverTimestamp{}

type arrayUnion struct {
	values []any
}

// ArrayUnion is a merge value that appends each element not already present
// in the stored array. Applied atomically by the store.
func ArrayUnion(values ...any) any {
	return arrayUnion{values: values}
}

// ResolveMerge applies patch on top of existing and returns the new document.
// Nested maps merge recursively, sentinels are resolved against now.
// existing is not modified.
func ResolveMerge(existing, patch Document, now time.Time) Document {
	out := existing.Clone()
	if out == nil {
		out = Document{}
	}
	for k, v := range patch {
		out[k] = resolveValue(out[k], v, now)
	}
	return out
}

func resolveValue(current, incoming any, now time.Time) any {
	switch t := incoming.(type) {
	case serverTimestamp:
		return now
	case arrayUnion:
		list := asSlice(current)
		for _, v := range t.values {
			if !containsValue(list, v) {
				list = append(list, v)
			}
		}
		return list
	case Document:
		return ResolveMerge(asDocument(current), t, now)
	case map[string]any:
		return ResolveMerge(asDocument(current), Document(t), now)
	default:
		return cloneValue(incoming)
	}
}

func asDocument(v any) Document {
	switch t := v.(type) {
	case Document:
		return t
	case map[string]any:
		return Document(t)
	}
	return nil
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return []any{}
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, v) {
			return true
		}
	}
	return false
}

// DocumentSnapshot is one observed state of a document
type DocumentSnapshot struct {
	Path      string
	Exists    bool
	Data      Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ID returns the last path segment
func (s DocumentSnapshot) ID() string {
	return LastSegment(s.Path)
}

// QuerySnapshot is one observed state of a collection. Docs are ordered
// newest first by creation time.
type QuerySnapshot struct {
	Collection string
	Docs       []DocumentSnapshot
}

// Unsubscribe tears down a live subscription. Safe to call more than once.
type Unsubscribe func()

// DocumentStore is the keyed document store contract
type DocumentStore interface {
	Get(ctx context.Context, path string) (DocumentSnapshot, error)
	MergeWrite(ctx context.Context, path string, partial Document) error
	DeleteDocument(ctx context.Context, path string) error
	SubscribeSnapshot(ctx context.Context, path string, onChange func(DocumentSnapshot), onError func(error)) (Unsubscribe, error)
	SubscribeQuery(ctx context.Context, collection string, onChange func(QuerySnapshot), onError func(error)) (Unsubscribe, error)
}

// Account is an identity-provider account
type Account struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// AuthSession is an authenticated identity-provider session
type AuthSession struct {
	Account   Account   `json:"account"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IdentityProvider is the client-side identity contract. CreateAccount signs
// the client in as the newly created account.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (Account, error)
	Authenticate(ctx context.Context, email, password string) (AuthSession, error)
	EndSession(ctx context.Context) error
	SetDisplayName(ctx context.Context, uid, name string) error
	CurrentSession() *AuthSession
	// OnSessionChanged fires on every session transition, including the
	// initial restore. A nil session means signed out.
	OnSessionChanged(callback func(*AuthSession)) Unsubscribe
}

// PrivilegedBackend performs provider operations that need elevated
// privileges unavailable to a plain client session.
type PrivilegedBackend interface {
	ResetPassword(ctx context.Context, uid, password string) error
	RevokeCredential(ctx context.Context, uid string) error
}

// JoinPath joins path segments with "/"
func JoinPath(segments ...string) string {
	return strings.Join(segments, "/")
}

// CollectionOf returns the parent collection of a document path
func CollectionOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// LastSegment returns the final segment of a path
func LastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
