package validators

import "go.mongodb.org/mongo-driver/bson"

var BranchValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "name", "timezone", "is_active"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":           bson.M{"bsonType": "string"},
			"business_name": bson.M{"bsonType": "string"},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},
			"address": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},
			"timezone":  bson.M{"bsonType": "string", "minLength": 1},
			"hours":     bson.M{"bsonType": "array"},
			"is_active": bson.M{"bsonType": "bool"},
		},
	},
}

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "branch_id", "name", "duration", "price", "is_active"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":       bson.M{"bsonType": "string"},
			"branch_id": bson.M{"bsonType": "string"},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"duration": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"buffer_before": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"buffer_after":  bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"price": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},
			"is_active": bson.M{"bsonType": "bool"},
		},
	},
}
