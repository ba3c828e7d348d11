package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	run(&out)

	want := `=== BEFORE: SRP VIOLATION EXAMPLE ===
LOG: Processing message from Agent1
LOG: Stored in database
DISPLAY: Hello World!
SUCCESS: Message processed!
LOG: Processing complete

LOG: Processing message from Agent
LOG: Validation failed
ERROR: Invalid input!

LOG: Processing message from 
LOG: Validation failed
ERROR: Invalid input!

LOG: Showing all messages
- Hello World! from Agent1
`
	assert.Equal(t, want, out.String())
}
