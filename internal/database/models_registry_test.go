package database

import (
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_ReferencedTablesFirst(t *testing.T) {
	list := PersistentModels()
	require.Len(t, list, 3)
	_, ok := list[0].(*models.User)
	require.True(t, ok, "users must migrate before posts reference them")
	_, ok = list[2].(*models.Post)
	require.True(t, ok, "posts must migrate last")
}
