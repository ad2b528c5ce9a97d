package main

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-orders/internal/domain/product"
)

// decodeProducts parses the catalog file: an array of
// {id, name, price, category, image{thumbnail, mobile, tablet, desktop}}.
func decodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var p product.Product
		if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			var err error
			switch string(key) {
			case "id":
				p.ID, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "price":
				var n jx.Num
				if n, err = d.Num(); err == nil {
					p.Price, err = decimal.NewFromString(n.String())
				}
			case "image":
				err = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					var err error
					switch string(key) {
					case "thumbnail":
						p.Image.Thumbnail, err = d.Str()
					case "mobile":
						p.Image.Mobile, err = d.Str()
					case "tablet":
						p.Image.Tablet, err = d.Str()
					case "desktop":
						p.Image.Desktop, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				})
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		if p.ID == "" {
			return errors.Errorf("product %d has no id", len(out))
		}
		if p.Price.IsNegative() {
			return errors.Errorf("product %s has a negative price", p.ID)
		}
		out = append(out, p)
		return nil
	})
	return out, err
}
