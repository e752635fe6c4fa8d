package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectTaskLookupArgs(t *testing.T) {
	t.Parallel()

	const id = "6f1c2b7e-0d4a-4a57-9d6e-2b1f4f3c8a10"

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"tasksync"},
			want: []string{"tasksync"},
		},
		{
			name: "task id first token",
			in:   []string{"tasksync", id},
			want: []string{"tasksync", "tasks", "show", id},
		},
		{
			name: "task id after value flag",
			in:   []string{"tasksync", "--dir", "./ws", id},
			want: []string{"tasksync", "--dir", "./ws", "tasks", "show", id},
		},
		{
			name: "task id after equals flag",
			in:   []string{"tasksync", "--group-by=priority", id},
			want: []string{"tasksync", "--group-by=priority", "tasks", "show", id},
		},
		{
			name: "task id after bool flag",
			in:   []string{"tasksync", "--pretty", id},
			want: []string{"tasksync", "--pretty", "tasks", "show", id},
		},
		{
			name: "task id after double dash",
			in:   []string{"tasksync", "--dsn", "postgres://x", "--", id},
			want: []string{"tasksync", "--dsn", "postgres://x", "--", "tasks", "show", id},
		},
		{
			name: "normal subcommand not rewritten",
			in:   []string{"tasksync", "tasks", "show", id},
			want: []string{"tasksync", "tasks", "show", id},
		},
		{
			name: "value flag value looks like an id",
			in:   []string{"tasksync", "--member", id, "tasks", "list"},
			want: []string{"tasksync", "--member", id, "tasks", "list"},
		},
		{
			name: "unknown command not rewritten",
			in:   []string{"tasksync", "wat"},
			want: []string{"tasksync", "wat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectTaskLookupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectTaskLookupArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
