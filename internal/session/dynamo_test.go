package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/savaki/auth-broker/internal/auth"
	"github.com/savaki/auth-broker/internal/dao/sessiondao"
	"github.com/savaki/ddb/v2"
	"github.com/savaki/ddb/v2/ddbtest"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
)

type dynamoData struct {
	Store *DynamoStore
}

func dynamoSetup(t *testing.T) (ctx context.Context, data dynamoData, cleanup func()) {
	ctx = context.Background()

	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion("us-west-2"),
		config.WithBaseEndpoint("http://localhost:8000"),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("blah", "blah", ""),
		),
	)
	assert.NoError(t, err)

	var (
		client    = dynamodb.NewFromConfig(cfg)
		db        = ddb.New(client)
		tableName = fmt.Sprintf("sessions-test-%v", ksuid.New().String())
		table     = db.MustTable(tableName, sessiondao.Record{})
		store     = NewDynamoStore(sessiondao.New(client, tableName), time.Hour)
	)

	err = table.CreateTableIfNotExists(ctx)
	assert.NoError(t, err)

	return ctx, dynamoData{Store: store}, func() {
		_ = table.DeleteTableIfExists(ctx)
	}
}

func TestDynamoStore(t *testing.T) {
	ddbtest.WithTable[dynamoData](t, dynamoSetup, func(t *testing.T, ctx context.Context, data dynamoData) {
		store := data.Store
		key := ksuid.New().String()

		err := store.Put(ctx, key, testSession())
		assert.NoError(t, err)

		got, err := store.Get(ctx, key)
		assert.NoError(t, err)
		if assert.NotNil(t, got) {
			assert.Equal(t, "alice@contoso.com", got.DisplayName())
			assert.Equal(t, auth.ProviderEntraID, got.Provider)
			assert.Equal(t, "Engineering", got.Groups[0]["displayName"])
		}

		err = store.Clear(ctx, key)
		assert.NoError(t, err)

		got, err = store.Get(ctx, key)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}
