package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithContext(t *testing.T) {
	root := New("connection refused")
	wrapped := WithContext(root, "fetch page")
	outer := WithContext(wrapped, "run sync")

	assert.Equal(t, "run sync: fetch page: connection refused", outer.Error())
	assert.Equal(t, root, RootCause(outer))
	assert.Equal(t, root, RootCause(root))
}

func TestGetPrintableMessage(t *testing.T) {
	friendly := NewFriendlyError("something broke: %s", "disk full")
	assert.Equal(t, "something broke: disk full", GetPrintableMessage(friendly))

	// Friendly errors keep their message even when wrapped with context.
	wrapped := WithContext(friendly, "setup")
	assert.Equal(t, "something broke: disk full", GetPrintableMessage(wrapped))

	plain := WithContext(New("boom"), "load config")
	assert.Equal(t, "load config: boom", GetPrintableMessage(plain))
}

func TestTypedErrors(t *testing.T) {
	assert.Equal(t, `"/tmp/missing" does not exist`,
		FileNotFound{Path: "/tmp/missing"}.Error())
	assert.Equal(t, "missing required field: notionToken",
		MissingFieldError{Field: "notionToken"}.Error())
}
