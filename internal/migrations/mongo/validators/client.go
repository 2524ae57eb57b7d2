package validators

import "go.mongodb.org/mongo-driver/bson"

var ClientValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"document_type",
			"document_number",
			"first_name",
			"last_name_paterno",
			"phone",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},

			"document_type": bson.M{
				"enum": []string{"dni", "pasaporte", "ce"},
			},

			"document_number": bson.M{
				"bsonType":  "string",
				"minLength": 5,
				"maxLength": 20,
			},

			"first_name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"last_name_paterno": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"last_name_materno": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"phone": bson.M{
				"bsonType": "string",
				"pattern":  "^\\+[1-9][0-9]{6,14}$",
			},

			"email": bson.M{
				"bsonType":  "string",
				"maxLength": 254,
			},

			"gender":     bson.M{"bsonType": "string"},
			"birth_date": bson.M{"bsonType": "string"},
			"photo_ref":  bson.M{"bsonType": "string"},

			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
