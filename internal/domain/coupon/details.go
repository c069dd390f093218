package coupon

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Details is the tagged union of coupon detail variants. Dispatch is done by
// a type switch over the concrete variants below.
type Details interface {
	details()
}

// CartWise discounts the whole cart by a percentage once the subtotal
// strictly exceeds Threshold.
type CartWise struct {
	Threshold decimal.Decimal
	Discount  decimal.Decimal
}

// ProductWise discounts every line item of one product by a percentage.
type ProductWise struct {
	ProductID int64
	Discount  decimal.Decimal
}

// ProductQuantity pairs a product with a quantity, used for both the buy
// conditions and the get rewards of a BuyXGetY coupon.
type ProductQuantity struct {
	ProductID int64
	Quantity  int64
}

// BuyXGetY waives the full price of Get rewards once the Buy conditions are
// met, repeated up to RepetitionLimit times.
type BuyXGetY struct {
	Buy             []ProductQuantity
	Get             []ProductQuantity
	RepetitionLimit int64
}

// Unsupported is the variant for unknown type tags. It never matches any
// predicate and applying it is a no-op.
type Unsupported struct {
	Tag string
}

func (CartWise) details()    {}
func (ProductWise) details() {}
func (BuyXGetY) details()    {}
func (Unsupported) details() {}

// ParseDetails decodes a raw detail payload for the declared type tag into
// its typed variant. Numeric fields tolerate both integer and floating
// representations; quantities and limits must still be whole numbers.
// Unknown type tags parse to Unsupported. Failures wrap ErrMalformedDetails.
func ParseDetails(typ Type, raw []byte) (Details, error) {
	switch typ {
	case TypeCartWise:
		return parseCartWise(raw)
	case TypeProductWise:
		return parseProductWise(raw)
	case TypeBuyXGetY:
		return parseBuyXGetY(raw)
	default:
		return Unsupported{Tag: string(typ)}, nil
	}
}

func parseCartWise(raw []byte) (Details, error) {
	var (
		cw            CartWise
		seenThreshold bool
		seenDiscount  bool
	)

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "threshold":
			v, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "threshold")
			}
			cw.Threshold = v
			seenThreshold = true
			return nil
		case "discount":
			v, err := decodePercent(d)
			if err != nil {
				return errors.Wrap(err, "discount")
			}
			cw.Discount = v
			seenDiscount = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrapf(ErrMalformedDetails, "cart-wise: %v", err)
	}
	if !seenThreshold || !seenDiscount {
		return nil, errors.Wrap(ErrMalformedDetails, "cart-wise: threshold and discount are required")
	}

	return cw, nil
}

func parseProductWise(raw []byte) (Details, error) {
	var (
		pw           ProductWise
		seenProduct  bool
		seenDiscount bool
	)

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := decodeInt(d)
			if err != nil {
				return errors.Wrap(err, "product_id")
			}
			pw.ProductID = v
			seenProduct = true
			return nil
		case "discount":
			v, err := decodePercent(d)
			if err != nil {
				return errors.Wrap(err, "discount")
			}
			pw.Discount = v
			seenDiscount = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrapf(ErrMalformedDetails, "product-wise: %v", err)
	}
	if !seenProduct || !seenDiscount {
		return nil, errors.Wrap(ErrMalformedDetails, "product-wise: product_id and discount are required")
	}

	return pw, nil
}

func parseBuyXGetY(raw []byte) (Details, error) {
	var (
		bxgy     BuyXGetY
		seenBuy  bool
		seenGet  bool
		seenReps bool
	)

	d := jx.DecodeBytes(raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "buy_products":
			list, err := decodeProductQuantities(d)
			if err != nil {
				return errors.Wrap(err, "buy_products")
			}
			bxgy.Buy = list
			seenBuy = true
			return nil
		case "get_products":
			list, err := decodeProductQuantities(d)
			if err != nil {
				return errors.Wrap(err, "get_products")
			}
			bxgy.Get = list
			seenGet = true
			return nil
		case "repetition_limit":
			v, err := decodeInt(d)
			if err != nil {
				return errors.Wrap(err, "repetition_limit")
			}
			if v < 1 {
				return errors.New("repetition_limit must be positive")
			}
			bxgy.RepetitionLimit = v
			seenReps = true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrapf(ErrMalformedDetails, "bxgy: %v", err)
	}
	if !seenBuy || !seenGet || !seenReps {
		return nil, errors.Wrap(ErrMalformedDetails,
			"bxgy: buy_products, get_products, and repetition_limit are required")
	}

	return bxgy, nil
}

func decodeProductQuantities(d *jx.Decoder) ([]ProductQuantity, error) {
	var list []ProductQuantity
	err := d.Arr(func(d *jx.Decoder) error {
		var (
			pq          ProductQuantity
			seenProduct bool
			seenQty     bool
		)
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product_id":
				v, err := decodeInt(d)
				if err != nil {
					return errors.Wrap(err, "product_id")
				}
				pq.ProductID = v
				seenProduct = true
				return nil
			case "quantity":
				v, err := decodeInt(d)
				if err != nil {
					return errors.Wrap(err, "quantity")
				}
				if v < 1 {
					return errors.New("quantity must be positive")
				}
				pq.Quantity = v
				seenQty = true
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		if !seenProduct || !seenQty {
			return errors.New("product_id and quantity are required")
		}
		list = append(list, pq)
		return nil
	})
	return list, err
}

// decodeDecimal reads a JSON number in any representation (integer or
// floating) as an exact decimal.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}

// decodePercent reads a decimal and requires it to be within [0, 100].
func decodePercent(d *jx.Decoder) (decimal.Decimal, error) {
	v, err := decodeDecimal(d)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if v.IsNegative() || v.GreaterThan(hundred) {
		return decimal.Decimal{}, errors.Errorf("percentage %s outside [0, 100]", v)
	}
	return v, nil
}

// decodeInt reads a JSON number and canonicalizes it to an integer.
// Floating representations of whole numbers ("2.0") are accepted.
func decodeInt(d *jx.Decoder) (int64, error) {
	v, err := decodeDecimal(d)
	if err != nil {
		return 0, err
	}
	if !v.IsInteger() {
		return 0, errors.Errorf("%s is not an integer", v)
	}
	return v.IntPart(), nil
}
