package testutil

import "testing"

// Given, When and Then nest subtests so a route test reads as a request
// scenario: Given an auth state, When a request is sent, Then a response is
// expected. The prefix becomes part of the subtest name.
func Given(t *testing.T, state string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", state, fn)
}

func When(t *testing.T, action string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", action, fn)
}

func Then(t *testing.T, outcome string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", outcome, fn)
}

func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(keyword+" "+desc, fn)
}
