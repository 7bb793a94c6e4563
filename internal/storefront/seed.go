package storefront

import "context"

// demoCatalog is the starter inventory loaded by Seed. Real deployments
// replace it through AddProduct.
var demoCatalog = []Product{
	{ID: "kb-301", Name: "Bytecraft Mech Keyboard", Description: "Hot-swappable 75% mechanical keyboard with PBT keycaps.", Category: "keyboards", PriceCents: 12999, InStock: true},
	{ID: "kb-302", Name: "Bytecraft Low-Profile Keyboard", Description: "Slim wireless keyboard for travel setups.", Category: "keyboards", PriceCents: 8999, InStock: true},
	{ID: "ms-110", Name: "Bytecraft Precision Mouse", Description: "Lightweight 58g gaming mouse, 26K DPI sensor.", Category: "mice", PriceCents: 6499, InStock: true},
	{ID: "ms-111", Name: "Bytecraft Ergo Mouse", Description: "Vertical ergonomic mouse with silent clicks.", Category: "mice", PriceCents: 4999, InStock: false},
	{ID: "hd-220", Name: "Bytecraft Studio Headset", Description: "Closed-back headset with detachable boom mic.", Category: "audio", PriceCents: 17999, InStock: true},
	{ID: "mn-450", Name: "Bytecraft 27\" Monitor", Description: "27 inch 1440p 165Hz IPS display.", Category: "monitors", PriceCents: 32999, InStock: true},
	{ID: "dk-500", Name: "Bytecraft USB-C Dock", Description: "11-in-1 dock with dual HDMI and 100W passthrough.", Category: "accessories", PriceCents: 10999, InStock: true},
	{ID: "cb-010", Name: "Bytecraft Braided Cable", Description: "2m braided USB-C cable, 240W rated.", Category: "accessories", PriceCents: 1499, InStock: true},
}

// Seed loads the demo catalog. Idempotent.
func (s *Store) Seed(ctx context.Context) error {
	for _, p := range demoCatalog {
		if err := s.AddProduct(ctx, p); err != nil {
			return err
		}
	}
	s.logger.Info("seeded demo catalog", "products", len(demoCatalog))
	return nil
}
