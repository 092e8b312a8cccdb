package orders

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bladi23/ImportadoraSonib/models"
)

// BuildOrderLink builds the WhatsApp confirmation link handed to the
// storefront after order creation.
func BuildOrderLink(orderID int, items []models.OrderItem, total decimal.Decimal) string {
	phone := getEnv("WHATSAPP_PHONE", "593992856725")

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hola, quiero confirmar la orden #%d:\n", orderID)
	for _, item := range items {
		fmt.Fprintf(&sb, "- %s x%d @ %s\n", item.ProductName, item.Quantity, item.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&sb, "Total: USD %s\n", total.StringFixed(2))

	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(sb.String()))
}
