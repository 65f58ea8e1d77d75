package booking

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// rootPartition names the body itself when it carries no fare-class partitions.
const rootPartition = "offers"

type priceAccessor struct {
	name string
	path []string
}

// Price locations, tried in order. The last element of path holds the amount;
// the currency is read from its sibling "currency" key.
var priceAccessors = []priceAccessor{
	{name: "priceFrom.price", path: []string{"priceFrom", "price"}},
	{name: "priceFrom.price.amount", path: []string{"priceFrom", "price", "amount"}},
	{name: "priceFrom.amount", path: []string{"priceFrom", "amount"}},
	{name: "lowestPrice.amount", path: []string{"lowestPrice", "amount"}},
	{name: "priceQuote.price.amount", path: []string{"priceQuote", "price", "amount"}},
	{name: "price.amount", path: []string{"price", "amount"}},
	{name: "price", path: []string{"price"}},
}

func (a priceAccessor) read(obj map[string]any) (Price, bool) {
	parent := obj
	for _, seg := range a.path[:len(a.path)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			return Price{}, false
		}
		parent = next
	}

	amount, ok := toFloat(parent[a.path[len(a.path)-1]])
	if !ok {
		return Price{}, false
	}
	currency, _ := parent["currency"].(string)
	return Price{Amount: amount, Currency: currency}, true
}

// Offers resolves bookability and the lowest price for one journey.
func (c *Client) Offers(ctx context.Context, journeyID string) (*OfferResult, error) {
	if journeyID == "" {
		return nil, &SchemaDriftError{Op: "offers", Detail: "journey has no id"}
	}

	root, err := c.doJSON(ctx, "offers", http.MethodGet, c.opts.Endpoints.Offers(journeyID), nil)
	if err != nil {
		return nil, err
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, &SchemaDriftError{Op: "offers", Detail: "response is not an object"}
	}

	result, ok := c.resolveOffers(obj)
	if !ok {
		return nil, &SchemaDriftError{Op: "offers", Detail: "no fare-class partition or availability flag"}
	}
	result.JourneyID = journeyID

	c.logger.WithFields(logrus.Fields{
		"journey":    journeyID,
		"available":  result.Available,
		"price":      result.PriceText(),
		"partitions": len(result.Partitions),
	}).Debug("offers resolved")

	return result, nil
}

func (c *Client) resolveOffers(obj map[string]any) (*OfferResult, bool) {
	result := &OfferResult{}

	for _, name := range c.opts.FareClasses {
		p, ok := obj[name].(map[string]any)
		if !ok {
			continue
		}
		result.Partitions = append(result.Partitions, c.readPartition(name, p))
	}

	if len(result.Partitions) == 0 {
		if _, ok := firstBool(obj, availableKeys); !ok {
			return nil, false
		}
		result.Partitions = append(result.Partitions, c.readPartition(rootPartition, obj))
	}

	for _, p := range result.Partitions {
		if !p.Available {
			continue
		}
		result.Available = true
		if p.Price != nil && (result.LowestPrice == nil || p.Price.Amount < result.LowestPrice.Amount) {
			result.LowestPrice = p.Price
		}
	}

	return result, true
}

func (c *Client) readPartition(name string, obj map[string]any) Partition {
	p := Partition{Name: name}
	p.Available, _ = firstBool(obj, availableKeys)
	if !p.Available {
		return p
	}

	for _, acc := range priceAccessors {
		price, ok := acc.read(obj)
		if !ok {
			continue
		}
		if price.Currency == "" {
			price.Currency = c.opts.Currency
		}
		p.Price = &price
		break
	}
	return p
}
