package validators

import "go.mongodb.org/mongo-driver/bson"

// SlotValidator keeps the occupancy counter within [0, capacity] for writes
// that reach the collection outside the service. A capacity of 0 counts as 1.
var SlotValidator = bson.M{
	"$expr": bson.M{"$lte": bson.A{
		"$booked_count",
		bson.M{"$max": bson.A{"$capacity", 1}},
	}},

	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date_key",
			"slot_id",
			"start",
			"end",
			"capacity",
			"booked_count",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"date_key": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"slot_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 32,
			},

			"start": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},

			"end": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},

			"capacity": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"booked_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
