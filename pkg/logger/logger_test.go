package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithOperation(ctx, "cart.add")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-123"`)) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"operation":"cart.add"`)) {
		t.Fatalf("expected operation field; entry=%s", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("stack should be omitted without WarnStack; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled; entry=%s", buf.String())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.WarnLevel, Output: buf})
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level; entry=%s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" DEBUG "); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", lvl)
	}
}

func TestWithFieldsRedactsCredentials(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	ctx := log.WithFields(context.Background(), map[string]any{
		"access_token": "abc.def",
		"cardNumber":   "4111111111111111",
		"path":         "/orders",
	})
	ctx = log.WithField(ctx, "Authorization", "Bearer xyz")
	log.Info(ctx, "request")

	for _, leaked := range []string{"abc.def", "4111111111111111", "Bearer xyz"} {
		if bytes.Contains(buf.Bytes(), []byte(leaked)) {
			t.Fatalf("%q leaked into entry=%s", leaked, buf.String())
		}
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"path":"/orders"`)) {
		t.Fatalf("expected plain field kept; entry=%s", buf.String())
	}
}

func TestWithUserIDSkipsAnonymous(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	log.Info(log.WithUserID(context.Background(), 0), "anon")
	if bytes.Contains(buf.Bytes(), []byte(`"user_id"`)) {
		t.Fatalf("anonymous entry should not carry user_id; entry=%s", buf.String())
	}
	buf.Reset()
	log.Info(log.WithUserID(context.Background(), 7), "signed in")
	if !bytes.Contains(buf.Bytes(), []byte(`"user_id":7`)) {
		t.Fatalf("expected numeric user_id; entry=%s", buf.String())
	}
}
