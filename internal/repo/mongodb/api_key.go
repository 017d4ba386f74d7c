package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	"github.com/nguyentranbao-ct/agent-console/pkg/crypto"
)

// APIKeyCodec seals the key value before it is written and opens it after it is read.
func APIKeyCodec(s crypto.Sealer) Codec[models.APIKey] {
	return Codec[models.APIKey]{
		Encode: func(k models.APIKey) (models.APIKey, error) {
			sealed, err := s.Seal(k.Key)
			if err != nil {
				return k, err
			}
			k.Key = sealed
			return k, nil
		},
		Decode: func(k models.APIKey) (models.APIKey, error) {
			opened, err := s.Open(k.Key)
			if err != nil {
				return k, err
			}
			k.Key = opened
			return k, nil
		},
		EncodeFields: func(set bson.M) (bson.M, error) {
			raw, ok := set["key"]
			if !ok {
				return set, nil
			}
			key, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("key field is %T", raw)
			}
			sealed, err := s.Seal(key)
			if err != nil {
				return nil, err
			}
			out := make(bson.M, len(set))
			for k, v := range set {
				out[k] = v
			}
			out["key"] = sealed
			return out, nil
		},
	}
}
