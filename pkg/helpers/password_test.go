package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndCheck(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd!", hash)

	assert.True(t, CheckPassword(hash, "Passw0rd!"))
	assert.False(t, CheckPassword(hash, "WrongPwd1!"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	t.Parallel()
	a, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	b, err := HashPassword("Passw0rd!")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCheckPasswordMalformedDigest(t *testing.T) {
	t.Parallel()
	assert.False(t, CheckPassword("not-a-bcrypt-digest", "Passw0rd!"))
	assert.False(t, CheckPassword("", "Passw0rd!"))
}
