package validators

import "go.mongodb.org/mongo-driver/bson"

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"branch_id",
			"staff_id",
			"service_id",
			"start_datetime",
			"end_datetime",
			"status",
			"client_id",
			"source",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},

			"branch_id":  bson.M{"bsonType": "string", "minLength": 1},
			"staff_id":   bson.M{"bsonType": "string", "minLength": 1},
			"service_id": bson.M{"bsonType": "string", "minLength": 1},
			"client_id":  bson.M{"bsonType": "string", "minLength": 1},

			"start_datetime": bson.M{"bsonType": "date"},
			"end_datetime":   bson.M{"bsonType": "date"},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "cancelled", "completed", "no_show"},
			},

			"price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"source":     bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
