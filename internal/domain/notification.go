package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types emitted by the barter lifecycle
const (
	NotificationProposalCreated = "new_barter_proposal"
	NotificationBarterAccepted  = "barter_accepted"
	NotificationBarterRejected  = "barter_rejected"
	NotificationBarterCountered = "barter_countered"
	NotificationBarterCancelled = "barter_cancelled"
	NotificationBarterCompleted = "barter_completed"
)

// Notification is the side-channel document informing a user of a state
// transition. It is delivered best-effort: failures never roll back the
// transition that produced it.
type Notification struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            string             `bson:"user_id" json:"userId"`
	Type              string             `bson:"type" json:"type"`
	Title             string             `bson:"title" json:"title"`
	Message           string             `bson:"message" json:"message"`
	RelatedEntityID   string             `bson:"related_entity_id,omitempty" json:"relatedEntityId,omitempty"`
	RelatedEntityType string             `bson:"related_entity_type,omitempty" json:"relatedEntityType,omitempty"`
	IsRead            bool               `bson:"is_read" json:"isRead"`
	CreatedAt         time.Time          `bson:"created_at" json:"createdAt"`
}
