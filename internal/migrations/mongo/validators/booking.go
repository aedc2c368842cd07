package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"requester_id",
			"date_key",
			"slot_id",
			"start",
			"end",
			"for_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"requester_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
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
			},

			"end": bson.M{
				"bsonType": "string",
			},

			"for_date": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
