package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvironmentOverridesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("AI_TIMEOUT", "3s")
	t.Setenv("DEPT_TELEGRAM_CHATS", "Hostel=-1001, Mess=abc ,IT Support=-1002")
	t.Setenv("ADMIN_TELEGRAM_CHATS", "7, x, 8")
	t.Setenv("ADMIN_EMAILS", " dean@kiit.ac.in ,,registrar@kiit.ac.in")
	t.Setenv("DEPT_MAILBOXES", "Hostel=hostel@kiit.ac.in,broken")
	t.Setenv("CORS_ORIGINS", "https://cms.kiit.ac.in")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 3*time.Second, cfg.AITimeout)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, map[string]int64{"Hostel": -1001, "IT Support": -1002}, cfg.DeptTelegramChatMap())
	assert.Equal(t, []int64{7, 8}, cfg.AdminTelegramChatList())
	assert.Equal(t, []string{"dean@kiit.ac.in", "registrar@kiit.ac.in"}, cfg.AdminEmailList())
	assert.Equal(t, map[string]string{"Hostel": "hostel@kiit.ac.in"}, cfg.DeptMailboxMap())
	assert.Equal(t, []string{"https://cms.kiit.ac.in"}, cfg.CORSOriginList())
}

func TestDepartments(t *testing.T) {
	assert.True(t, IsDepartment("Hostel"))
	assert.False(t, IsDepartment("hostel"))
	assert.False(t, IsDepartment(UnassignedDept))

	names := DepartmentNames()
	assert.Len(t, names, len(Departments))
	assert.IsIncreasing(t, names)
}
