package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"branch_id",
			"service_id",
			"staff_id",
			"start_datetime",
			"end_datetime",
			"state",
			"holds_slot",
			"expires_at",
			"created_at",
			"version",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 16,
			},

			"branch_id":  bson.M{"bsonType": "string", "minLength": 1},
			"service_id": bson.M{"bsonType": "string", "minLength": 1},
			"staff_id":   bson.M{"bsonType": "string", "minLength": 1},

			"start_datetime": bson.M{"bsonType": "date"},
			"end_datetime":   bson.M{"bsonType": "date"},

			"notes": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"state": bson.M{
				"enum": []string{"HELD", "AWAITING_OTP", "VERIFIED", "CONFIRMED", "EXPIRED", "CANCELLED"},
			},

			"holds_slot": bson.M{"bsonType": "bool"},

			"client_draft": bson.M{
				"bsonType": "object",
				"required": []string{"phone_number"},
				"properties": bson.M{
					"phone_number": bson.M{
						"bsonType": "string",
						"pattern":  "^\\+[1-9][0-9]{6,14}$",
					},
				},
			},

			"appointment_id": bson.M{"bsonType": "string"},

			"expires_at": bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
		},
	},
}

var SlotGuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "seq"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"seq":        bson.M{"bsonType": []string{"int", "long"}},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
