package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoOptions_ClientOptions(t *testing.T) {
	co := MongoOptions{
		URI:            "mongodb://db.internal:27017",
		Username:       "jetback",
		Password:       "secret",
		AppName:        "jetback-server",
		ConnectTimeout: 3 * time.Second,
	}.clientOptions()

	require.NoError(t, co.Validate())
	assert.Equal(t, []string{"db.internal:27017"}, co.Hosts)
	require.NotNil(t, co.AppName)
	assert.Equal(t, "jetback-server", *co.AppName)
	assert.Equal(t, 3*time.Second, *co.ConnectTimeout)
	assert.Equal(t, 3*time.Second, *co.ServerSelectionTimeout)
	require.NotNil(t, co.Auth)
	assert.Equal(t, "jetback", co.Auth.Username)
}

func TestMongoOptions_Defaults(t *testing.T) {
	co := MongoOptions{URI: "mongodb://localhost:27017"}.clientOptions()

	assert.Equal(t, DefaultMongoConnectTimeout, *co.ConnectTimeout)
	assert.Nil(t, co.AppName)
	assert.Nil(t, co.Auth)
}
