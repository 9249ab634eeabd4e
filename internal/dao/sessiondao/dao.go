package sessiondao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/savaki/ddb/v2"
)

const sessionSK = "SESSION"

// TableName returns the session table name for an environment.
func TableName(env string) string {
	return fmt.Sprintf("%s-auth-broker-sessions", env)
}

// Record represents one persisted login session.
// Identity and Groups hold the provider payloads as JSON.
type Record struct {
	PK        string `ddb:"hash" dynamodbav:"pk"`  // session id
	SK        string `ddb:"range" dynamodbav:"sk"` // Always "SESSION"
	Provider  string `dynamodbav:"provider"`
	Identity  string `dynamodbav:"identity"`
	Groups    string `dynamodbav:"groups"`
	CreatedAt int64  `dynamodbav:"created_at"` // Unix timestamp
	TTL       int64  `dynamodbav:"ttl"`        // Unix timestamp for DynamoDB TTL expiry
}

// PutInput contains the fields written for a session.
type PutInput struct {
	ID       string
	Provider string
	Identity string
	Groups   string
	TTL      time.Duration
}

// DAO provides data access operations for sessions
type DAO struct {
	client    *dynamodb.Client
	tableName string
	db        *ddb.DDB
	table     *ddb.Table
	now       func() time.Time
}

// New creates a new DAO instance
func New(client *dynamodb.Client, tableName string) *DAO {
	db := ddb.New(client)
	table := db.MustTable(tableName, &Record{})
	return &DAO{
		client:    client,
		tableName: tableName,
		db:        db,
		table:     table,
		now:       time.Now,
	}
}

// CreateTable creates the session table if it does not exist and enables
// expiry on the ttl attribute.
func (d *DAO) CreateTable(ctx context.Context) error {
	if err := d.table.CreateTableIfNotExists(ctx); err != nil {
		return fmt.Errorf("failed to create table %s: %w", d.tableName, err)
	}

	_, err := d.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(d.tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil && !strings.Contains(err.Error(), "TimeToLive is already enabled") {
		return fmt.Errorf("failed to enable ttl on %s: %w", d.tableName, err)
	}
	return nil
}

// Put writes the session, replacing any existing record with the same id.
func (d *DAO) Put(ctx context.Context, input PutInput) (*Record, error) {
	now := d.now()
	record := &Record{
		PK:        input.ID,
		SK:        sessionSK,
		Provider:  input.Provider,
		Identity:  input.Identity,
		Groups:    input.Groups,
		CreatedAt: now.Unix(),
		TTL:       now.Add(input.TTL).Unix(),
	}

	if err := d.table.Put(record).RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to put session: %w", err)
	}
	return record, nil
}

// Find retrieves a session record by id.
// Returns nil if not found or past its TTL; DynamoDB removes expired items lazily.
func (d *DAO) Find(ctx context.Context, id string) (*Record, error) {
	var record Record

	err := d.table.Get(id).
		Range(sessionSK).
		ConsistentRead(true).
		ScanWithContext(ctx, &record)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "item not found") || strings.Contains(errStr, "ItemNotFound") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if record.PK == "" {
		return nil, nil
	}
	if record.TTL > 0 && d.now().Unix() >= record.TTL {
		return nil, nil
	}

	return &record, nil
}

// Delete removes a session record. Deleting a missing record is not an error.
func (d *DAO) Delete(ctx context.Context, id string) error {
	err := d.table.Delete(id).
		Range(sessionSK).
		RunWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
