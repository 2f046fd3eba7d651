package mongo

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

var tUUID = reflect.TypeOf(uuid.UUID{})

// uuidRegistry returns a bson registry that stores uuid.UUID values as plain
// strings, so ids stay readable in the shell and indexable as regular keys.
func uuidRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()

	reg.RegisterTypeEncoder(tUUID, bsoncodec.ValueEncoderFunc(
		func(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
			if !val.IsValid() || val.Type() != tUUID {
				return bsoncodec.ValueEncoderError{
					Name:     "uuidEncoder",
					Types:    []reflect.Type{tUUID},
					Received: val,
				}
			}
			return vw.WriteString(val.Interface().(uuid.UUID).String())
		}))

	reg.RegisterTypeDecoder(tUUID, bsoncodec.ValueDecoderFunc(
		func(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
			if !val.CanSet() || val.Type() != tUUID {
				return bsoncodec.ValueDecoderError{
					Name:     "uuidDecoder",
					Types:    []reflect.Type{tUUID},
					Received: val,
				}
			}
			s, err := vr.ReadString()
			if err != nil {
				return err
			}
			id, err := uuid.Parse(s)
			if err != nil {
				return err
			}
			val.Set(reflect.ValueOf(id))
			return nil
		}))

	return reg
}

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(uuidRegistry())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection before handing the
	// client out.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
