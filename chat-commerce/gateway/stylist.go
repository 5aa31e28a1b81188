package gateway

import (
	"context"
	"net/http"

	"go-chat-commerce/chat-commerce/cards"
	"go-chat-commerce/chat-commerce/types"
)

// StylistClient fetches outfit suggestions for a purchased product
type StylistClient struct {
	c client
}

type outfitResponse struct {
	Success          *bool          `json:"success"`
	RecommendationID string         `json:"recommendation_id"`
	PurchasedProduct map[string]any `json:"purchased_product"`
	Recommendations  struct {
		RecommendedProducts []map[string]any `json:"recommended_products"`
		StylingTips         []string         `json:"styling_tips"`
	} `json:"recommendations"`
}

// OutfitSuggestions returns nil picks, not an error, when the stylist has nothing to offer
func (s *StylistClient) OutfitSuggestions(ctx context.Context, req types.OutfitRequest) (*types.StylistPicks, error) {
	data, err := s.c.do(ctx, http.MethodPost, "/outfit-suggestions", "", req)
	if err != nil {
		return nil, err
	}
	var out outfitResponse
	if err := decode(data, &out); err != nil {
		return nil, &types.ServiceError{Service: s.c.service, StatusCode: http.StatusOK, Msg: err.Error()}
	}
	if out.Success != nil && !*out.Success {
		return nil, nil
	}

	recommended := cards.NormalizeAll(out.Recommendations.RecommendedProducts)
	if len(recommended) == 0 && len(out.Recommendations.StylingTips) == 0 {
		return nil, nil
	}
	purchased := types.ProductCard{SKU: req.ProductSKU, Name: req.ProductName}
	if out.PurchasedProduct != nil {
		if card := cards.Normalize(out.PurchasedProduct); card.SKU != "" || card.Name != "" {
			purchased = card
		}
	}
	return &types.StylistPicks{
		PurchasedProduct:    purchased,
		RecommendedProducts: recommended,
		StylingTips:         out.Recommendations.StylingTips,
	}, nil
}
