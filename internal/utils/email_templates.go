package utils

import (
	"fmt"
	"strings"

	"vkitchen_back_end/internal/models"
)

func getStatusEmailSubject(status models.OrderStatus) string {
	switch status {
	case models.StatusPreparing:
		return "👨‍🍳 Your order is being prepared - V-Kitchen"
	case models.StatusReady:
		return "🛎️ Your order is ready - V-Kitchen"
	case models.StatusOutForDelivery:
		return "🛵 Your order is on its way - V-Kitchen"
	case models.StatusCompleted:
		return "🎉 Your order has been delivered - V-Kitchen"
	case models.StatusCancelled:
		return "❌ Order cancelled - V-Kitchen"
	default:
		return "📋 Order update - V-Kitchen"
	}
}

func getStatusMessage(status models.OrderStatus) string {
	switch status {
	case models.StatusPreparing:
		return "The kitchen has started preparing your order."
	case models.StatusReady:
		return "Good news! Your order is ready."
	case models.StatusOutForDelivery:
		return "Your order has left the kitchen and is on its way to you."
	case models.StatusCompleted:
		return "Your order has been delivered. Enjoy your meal!"
	case models.StatusCancelled:
		return "Your order has been cancelled. If you have any questions, please contact us."
	default:
		return "The status of your order has been updated."
	}
}

func getStatusColor(status models.OrderStatus) string {
	switch status {
	case models.StatusPreparing:
		return "#f59e0b" // Orange
	case models.StatusReady:
		return "#10b981" // Green
	case models.StatusOutForDelivery:
		return "#3b82f6" // Blue
	case models.StatusCompleted:
		return "#8b5cf6" // Purple
	case models.StatusCancelled:
		return "#ef4444" // Red
	default:
		return "#6b7280" // Gray
	}
}

func generateStatusEmailHTML(o *models.Order, status models.OrderStatus) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #f97316 0%%, #dc2626 100%%); color: white; padding: 30px; text-align: center; border-radius: 10px 10px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 10px 10px; }
        .badge { display: inline-block; padding: 10px 22px; background: %s; color: white; border-radius: 25px; font-weight: 600; text-transform: uppercase; }
        .info-box { background: white; padding: 20px; border-radius: 8px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>V-Kitchen</h1>
            <p>Order update</p>
        </div>
        <div class="content">
            <p style="text-align: center;"><span class="badge">%s</span></p>
            <p>%s</p>
            <div class="info-box">
                <p><strong>Order number:</strong> %s</p>
                <p><strong>Total:</strong> %.2f</p>
            </div>
        </div>
    </div>
</body>
</html>`, getStatusColor(status), status, getStatusMessage(status), o.OrderNumber, o.TotalAmount)
}

func generateOrderConfirmationHTML(o *models.Order) string {
	itemsHTML := ""
	for _, item := range o.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td style="padding: 8px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%.2f</td>
				<td style="padding: 8px; border: 1px solid #ddd;">%.2f</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Subtotal())
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Your order is confirmed</h2>
		<p>Hello,</p>
		<p>Thanks for your order <strong>%s</strong>. The kitchen has it!</p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Dish</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Qty</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Unit price</th>
					<th style="padding: 8px; text-align: left; border: 1px solid #ddd;">Subtotal</th>
				</tr>
			</thead>
			<tbody>%s</tbody>
			<tfoot>
				<tr>
					<td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 8px; font-weight: bold;">%.2f</td>
				</tr>
			</tfoot>
		</table>
		<p style="margin-top: 30px; color: #555;">
			Bon appétit,<br>
			<strong>The V-Kitchen team</strong>
		</p>
	</div>
</body>
</html>`, o.OrderNumber, itemsHTML, o.TotalAmount)
}

func generateOrderAlertHTML(o *models.Order, message string) string {
	itemsHTML := ""
	for _, item := range o.Items {
		itemsHTML += fmt.Sprintf("<li>%d × %s (%.2f)</li>", item.Quantity, item.Name, item.Subtotal())
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
	<h2>Order %s</h2>
	<p>%s</p>
	<ul>%s</ul>
	<p><strong>Total:</strong> %.2f</p>
	<p><strong>Type:</strong> %s</p>
	<p><strong>Phone:</strong> %s</p>
	<p><strong>Address:</strong> %s</p>
</body>
</html>`, o.OrderNumber, message, itemsHTML, o.TotalAmount, o.Delivery.Type, o.Delivery.Phone, o.Delivery.Address)
}

func appendPickupQR(html, qrDataURI string) string {
	block := fmt.Sprintf(`
	<div style="text-align: center; margin: 20px 0;">
		<p>Show this code at the counter:</p>
		<img src="%s" alt="pickup code" width="200" height="200" />
	</div>
</body>`, qrDataURI)
	// Inject before the closing body tag.
	idx := strings.LastIndex(html, "</body>")
	if idx < 0 {
		return html + block
	}
	return html[:idx] + block + html[idx+len("</body>"):]
}
