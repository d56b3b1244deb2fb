// Package store maps config categories to device files and moves documents between
// the device and the codec.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/moyoez/devconf/codec"
	"github.com/moyoez/devconf/remote"
	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

// Session is what the store needs from a remote session.
type Session interface {
	Connected() bool
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
}

// Publisher receives content updates after a confirmed write.
type Publisher interface {
	PublishEvent(event types.ContentUpdateEvent) error
}

type Store struct {
	publisher Publisher
}

// New creates a store that announces pushes on publisher, which may be nil.
func New(publisher Publisher) *Store {
	return &Store{publisher: publisher}
}

func lookup(category types.Category) (types.ConfigFile, error) {
	f, ok := category.File()
	if !ok {
		return types.ConfigFile{}, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	return f, nil
}

// Fetch reads and parses the category's file. It never publishes.
func (s *Store) Fetch(ctx context.Context, sess Session, category types.Category) (*codec.Document, error) {
	f, err := lookup(category)
	if err != nil {
		return nil, err
	}
	if !sess.Connected() {
		return nil, ErrRemoteUnavailable
	}
	raw, err := sess.ReadFile(ctx, f.Path)
	if err != nil {
		if unavailable(err) {
			return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	doc, err := codec.Parse(f.Dialect, raw)
	if err != nil {
		return nil, &MalformedContentError{Category: category, Path: f.Path, Raw: raw, Err: err}
	}
	tool.DefaultLogger.Debugf("Fetched %s (%s, %d bytes)", category, f.Path, len(raw))
	return doc, nil
}

// Push writes doc to the category's file and then announces the new content.
func (s *Store) Push(ctx context.Context, sess Session, category types.Category, doc *codec.Document) error {
	f, err := lookup(category)
	if err != nil {
		return err
	}
	if doc == nil || doc.Dialect() != f.Dialect {
		return fmt.Errorf("%w: %s wants %s", ErrDialectMismatch, category, f.Dialect)
	}
	return s.write(ctx, sess, f, codec.Serialize(doc))
}

// PushContent writes raw text after checking that it parses in the category's dialect.
func (s *Store) PushContent(ctx context.Context, sess Session, category types.Category, raw string) error {
	f, err := lookup(category)
	if err != nil {
		return err
	}
	if err := codec.Validate(f.Dialect, raw); err != nil {
		return &MalformedContentError{Category: category, Path: f.Path, Raw: raw, Err: err}
	}
	return s.write(ctx, sess, f, raw)
}

// Update fetches, applies changes and pushes in one step.
func (s *Store) Update(ctx context.Context, sess Session, category types.Category, changes []types.Change) (*codec.Document, error) {
	doc, err := s.Fetch(ctx, sess, category)
	if err != nil {
		return nil, err
	}
	next, err := codec.ApplyChanges(doc, changes)
	if err != nil {
		return nil, err
	}
	if err := s.Push(ctx, sess, category, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Store) write(ctx context.Context, sess Session, f types.ConfigFile, content string) error {
	if !sess.Connected() {
		return ErrRemoteUnavailable
	}
	if err := sess.WriteFile(ctx, f.Path, content); err != nil {
		tool.DefaultLogger.Warnf("Writing %s failed: %v", f.Path, err)
		if unavailable(err) {
			return fmt.Errorf("%w: %w: %w", ErrWriteFailed, ErrRemoteUnavailable, err)
		}
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	tool.DefaultLogger.Infof("Saved %s (%d bytes)", f.Path, len(content))
	if s.publisher != nil {
		if err := s.publisher.PublishEvent(types.ContentUpdateEvent{Category: f.Category, Content: content}); err != nil {
			tool.DefaultLogger.Warnf("Announcing %s: %v", f.Category, err)
		}
	}
	return nil
}

func unavailable(err error) bool {
	return errors.Is(err, remote.ErrNotConnected) || errors.Is(err, remote.ErrConnectionLost) || errors.Is(err, remote.ErrClosed)
}
