package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	run(&out)

	want := `=== BEFORE: Open/Closed Principle Violation ===
Problem: Must modify existing code to add new channels

Email: Hello via Email!
SMS: Hello via SMS!
Voice: Hello via Voice!
Unknown channel: unknown

PROBLEM: Adding voice channel required modifying NotificationManager!
`
	assert.Equal(t, want, out.String())
}

func TestNotify_UnknownChannel(t *testing.T) {
	var out bytes.Buffer
	manager := &NotificationManager{out: &out}

	manager.Notify("x", "discord")
	assert.Equal(t, "Unknown channel: discord\n", out.String())
}
