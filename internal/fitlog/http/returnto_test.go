package http

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReturnTo(t *testing.T) {
	const fallback = "/workouts/cardio"

	tests := []struct {
		raw  string
		want string
	}{
		{"", fallback},
		{"/home", "/home"},
		{"/workouts/cardio?page=2&limit=10", "/workouts/cardio?page=2&limit=10"},
		{"/admin/workouts?user=alice", "/admin/workouts?user=alice"},
		{"/workouts/cardio/new", fallback},
		{"/workouts/cardio/01HX/edit", fallback},
		{"/workouts/cardio/01HX/delete/", fallback},
		{"/workouts/cardio/01HX/duplicate?x=1", fallback},
		{"https://evil.example.com/", fallback},
		{"//evil.example.com/home", fallback},
		{"home", fallback},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, returnTo(tt.raw, fallback), tt.raw)
	}
}

func TestSafeNext(t *testing.T) {
	require.Equal(t, "/settings", safeNext("/settings"))
	require.Equal(t, "/home", safeNext(""))
	require.Equal(t, "/home", safeNext("/logout"))
	require.Equal(t, "/home", safeNext("http://evil.example.com"))
}
