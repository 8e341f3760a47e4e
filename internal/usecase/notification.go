package usecase

import (
	"fmt"
	"html"
	"strings"

	"github.com/aq2208/gstore-api/internal/entity"
)

var statusLabels = map[entity.Status]string{
	entity.StatusInProgress: "in progress",
	entity.StatusEnRoute:    "on its way",
	entity.StatusDelivered:  "delivered",
}

// StatusChangedNotification renders the email sent to an order's owner after a status change.
func StatusChangedNotification(storeName string, o *entity.Order, owner entity.User) Notification {
	label, ok := statusLabels[o.Status]
	if !ok {
		label = string(o.Status)
	}
	name := html.EscapeString(owner.Username)

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Order #%d %s</h1><br>", o.ID, label)
	fmt.Fprintf(&b, "<h3>Hi %s, here are the details of your purchase.</h3>", name)
	b.WriteString("<b>Order details:</b><br><ul>")
	fmt.Fprintf(&b, "<li><b>Order no.:</b> %d</li>", o.ID)
	fmt.Fprintf(&b, "<li><b>Status:</b> %s</li>", label)
	fmt.Fprintf(&b, "<li><b>Total:</b> $%s</li>", o.Total.StringFixed(2))
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<br><br>Regards,<br><b>%s</b>", html.EscapeString(storeName))

	return Notification{
		To:      owner.Email,
		Subject: fmt.Sprintf("Order #%d status | %s", o.ID, storeName),
		Body:    b.String(),
		OrderID: o.ID,
		Status:  string(o.Status),
	}
}
