package bootstrap

import (
	"testing"

	"quill/internal/config"
	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureDevStaff_CreatesAndPromotes(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		Env:               "development",
		DevBootstrapStaff: true,
		DevStaffUsername:  "chief",
		DevStaffPassword:  "first-password",
	}

	require.NoError(t, ensureDevStaff(cfg, db))

	var user models.User
	require.NoError(t, db.Where("username = ?", "chief").First(&user).Error)
	assert.True(t, user.IsStaff)
	assert.Equal(t, "chief@quill.local", user.Email)

	// a demoted account is promoted again and its password reset
	require.NoError(t, db.Model(&user).Update("is_staff", false).Error)
	cfg.DevStaffPassword = "second-password"
	require.NoError(t, ensureDevStaff(cfg, db))

	require.NoError(t, db.First(&user, user.ID).Error)
	assert.True(t, user.IsStaff)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("second-password")))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestEnsureDevStaff_Skipped(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"Disabled", &config.Config{Env: "development", DevStaffPassword: "x"}},
		{"Production", &config.Config{Env: "production", DevBootstrapStaff: true, DevStaffPassword: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ensureDevStaff(tt.cfg, db))
			var count int64
			db.Model(&models.User{}).Count(&count)
			assert.Zero(t, count)
		})
	}
}

func TestEnsureDevStaff_RequiresPassword(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	err := ensureDevStaff(&config.Config{Env: "development", DevBootstrapStaff: true}, db)
	assert.ErrorContains(t, err, "DEV_STAFF_PASSWORD")
}
