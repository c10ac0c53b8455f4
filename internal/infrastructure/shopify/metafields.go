package shopify

import "context"

type metafieldsSetData struct {
	MetafieldsSet struct {
		Metafields []struct {
			ID string `json:"id"`
		} `json:"metafields"`
		UserErrors []userError `json:"userErrors"`
	} `json:"metafieldsSet"`
}

const metafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
	metafieldsSet(metafields: $metafields) {
		metafields { id namespace key type value }
		userErrors { field message }
	}
}`

// SetMetafield writes one namespaced attribute onto a product or variant.
func (c *Client) SetMetafield(ctx context.Context, ownerGID, namespace, key, valueType, value string) error {
	var data metafieldsSetData
	err := c.graphql(ctx, metafieldsSetMutation, map[string]any{
		"metafields": []map[string]any{{
			"ownerId":   ownerGID,
			"namespace": namespace,
			"key":       key,
			"type":      valueType,
			"value":     value,
		}},
	}, &data)
	if err != nil {
		return err
	}
	return userErrorsToError("metafieldsSet", data.MetafieldsSet.UserErrors)
}
