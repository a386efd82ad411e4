package workitem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tracksync/internal/core/tracking"
)

func TestItem_Source(t *testing.T) {
	task := FromTask(Task{SessionID: "P-003", TaskID: "T-1", Title: "Do it"})
	assert.Equal(t, tracking.TypePlanningTask, task.Type())
	assert.Equal(t, "task:P-003/T-1", task.Source().Key())
	require.NoError(t, task.Validate())
	assert.Equal(t, "P-003/T-1", task.String())

	comment := FromComment(Comment{CommentID: "TODO-1", FilePath: "pkg/a.go", LineNumber: 4})
	assert.Equal(t, tracking.TypeCodeComment, comment.Type())
	assert.Equal(t, "comment:TODO-1@pkg/a.go:4", comment.Source().Key())
	require.NoError(t, comment.Validate())
}

func TestItem_Validate(t *testing.T) {
	tests := []struct {
		name string
		item Item
	}{
		{"empty", Item{}},
		{"both set", Item{Task: &Task{SessionID: "s", TaskID: "t"}, Comment: &Comment{CommentID: "c", FilePath: "f", LineNumber: 1}}},
		{"task without id", FromTask(Task{SessionID: "s"})},
		{"comment on line zero", FromComment(Comment{CommentID: "c", FilePath: "f"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.item.Validate())
		})
	}
}
