package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	cases := []struct {
		name, in, user, pass, want string
	}{
		{
			name: "native dsn untouched",
			in:   "root:pw@tcp(127.0.0.1:3306)/market?parseTime=true",
			want: "root:pw@tcp(127.0.0.1:3306)/market?parseTime=true",
		},
		{
			name: "url form",
			in:   "mysql://root:pw@db:3306/market",
			want: "root:pw@tcp(db:3306)/market?charset=utf8mb4&parseTime=true",
		},
		{
			name: "jdbc params and override",
			in:   "jdbc:mysql://db:3306/market?useSSL=false&characterEncoding=utf8&serverTimezone=UTC",
			user: "app", pass: "secret",
			want: "app:secret@tcp(db:3306)/market?charset=utf8&loc=UTC&parseTime=true&tls=false",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeMySQLDSN(tc.in, tc.user, tc.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "root:****@tcp(db)/x", maskDSN("root:pw@tcp(db)/x"))
	assert.Equal(t, "tcp(db)/x", maskDSN("tcp(db)/x"))
}

func TestNewGorm(t *testing.T) {
	t.Run("sqlite memory", func(t *testing.T) {
		db, err := NewGorm(Opts{Driver: "sqlite", DSN: "file:gormtest?mode=memory&cache=shared", LogLevel: "silent"})
		require.NoError(t, err)
		var one int
		require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
		assert.Equal(t, 1, one)
	})
	t.Run("unsupported", func(t *testing.T) {
		_, err := NewGorm(Opts{Driver: "oracle"})
		assert.ErrorIs(t, err, ErrUnsupportedDriver)
	})
}
