package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResultDocument is one completed interview in the results collection
type ResultDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SessionID    string             `bson:"session_id"`
	Timestamp    string             `bson:"timestamp"`
	Location     string             `bson:"location"`
	Tool         string             `bson:"tool"`
	Title        string             `bson:"title"`
	CoreValue    string             `bson:"core_value"`
	Monetization string             `bson:"monetization"`
	Verdict      string             `bson:"verdict"`
	Confidence   string             `bson:"confidence"`
	Report       map[string]string  `bson:"report"`
	Transcript   string             `bson:"transcript"`
	CreatedAt    time.Time          `bson:"created_at"`
}
