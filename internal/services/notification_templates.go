package services

import (
	"fmt"

	"bakery/internal/errs"
)

// Template names a customer- or baker-facing message.
type Template string

const (
	TemplateOrderPlacedCustomer       Template = "order_placed.customer"
	TemplateOrderPlacedBaker          Template = "order_placed.baker"
	TemplateCustomOrderPlacedCustomer Template = "custom_order_placed.customer"
	TemplateCustomOrderPlacedBaker    Template = "custom_order_placed.baker"
	TemplateOrderAccepted             Template = "order_accepted"
	TemplateOrderRejected             Template = "order_rejected"
	TemplateOrderPreparing            Template = "order_preparing"
	TemplateOrderCompleted            Template = "order_completed"
	TemplateOrderShipped              Template = "order_shipped"
)

// TemplateArgs are the values interpolated into messages.
type TemplateArgs struct {
	OrderNumber  string
	CustomerName string
	Reason       string
}

// Templates is one locale's message catalog.
type Templates struct {
	messages          map[Template]func(TemplateArgs) string
	anonymousCustomer string
}

// Render produces the message for t.
func (ts Templates) Render(t Template, args TemplateArgs) (string, error) {
	render, ok := ts.messages[t]
	if !ok {
		return "", errs.InvalidInput("unknown notification template %q", t)
	}
	if args.CustomerName == "" {
		args.CustomerName = ts.anonymousCustomer
	}
	return render(args), nil
}

// TemplatesFor returns the catalog for locale, falling back to English.
func TemplatesFor(locale string) Templates {
	if locale == "ru" {
		return templatesRU
	}
	return templatesEN
}

var templatesEN = Templates{
	anonymousCustomer: "a customer",
	messages: map[Template]func(TemplateArgs) string{
		TemplateOrderPlacedCustomer: func(a TemplateArgs) string {
			return fmt.Sprintf("Your order #%s has been placed.", a.OrderNumber)
		},
		TemplateOrderPlacedBaker: func(a TemplateArgs) string {
			return fmt.Sprintf("New order #%s from %s.", a.OrderNumber, a.CustomerName)
		},
		TemplateCustomOrderPlacedCustomer: func(a TemplateArgs) string {
			return fmt.Sprintf("Your custom order #%s has been placed.", a.OrderNumber)
		},
		TemplateCustomOrderPlacedBaker: func(a TemplateArgs) string {
			return fmt.Sprintf("New custom order #%s from %s.", a.OrderNumber, a.CustomerName)
		},
		TemplateOrderAccepted: func(a TemplateArgs) string {
			return fmt.Sprintf("Your order #%s was accepted.", a.OrderNumber)
		},
		TemplateOrderRejected: func(a TemplateArgs) string {
			msg := fmt.Sprintf("Your order #%s was declined.", a.OrderNumber)
			if a.Reason != "" {
				msg += " Reason: " + a.Reason
			}
			return msg
		},
		TemplateOrderPreparing: func(a TemplateArgs) string {
			return fmt.Sprintf("Your order #%s is being prepared.", a.OrderNumber)
		},
		TemplateOrderCompleted: func(a TemplateArgs) string {
			return fmt.Sprintf("Your order #%s is complete.", a.OrderNumber)
		},
		TemplateOrderShipped: func(a TemplateArgs) string {
			return fmt.Sprintf("Your order #%s has shipped.", a.OrderNumber)
		},
	},
}

var templatesRU = Templates{
	anonymousCustomer: "клиента",
	messages: map[Template]func(TemplateArgs) string{
		TemplateOrderPlacedCustomer: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш заказ #%s успешно оформлен!", a.OrderNumber)
		},
		TemplateOrderPlacedBaker: func(a TemplateArgs) string {
			return fmt.Sprintf("У вас новый заказ #%s от %s!", a.OrderNumber, a.CustomerName)
		},
		TemplateCustomOrderPlacedCustomer: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш индивидуальный заказ #%s успешно оформлен!", a.OrderNumber)
		},
		TemplateCustomOrderPlacedBaker: func(a TemplateArgs) string {
			return fmt.Sprintf("У вас новый индивидуальный заказ #%s от %s!", a.OrderNumber, a.CustomerName)
		},
		TemplateOrderAccepted: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш заказ #%s принят!", a.OrderNumber)
		},
		TemplateOrderRejected: func(a TemplateArgs) string {
			msg := fmt.Sprintf("К сожалению, ваш заказ #%s отклонен.", a.OrderNumber)
			if a.Reason != "" {
				msg += " Причина: " + a.Reason
			}
			return msg
		},
		TemplateOrderPreparing: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш заказ #%s готовится!", a.OrderNumber)
		},
		TemplateOrderCompleted: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш заказ #%s выполнен и готов к выдаче/доставке!", a.OrderNumber)
		},
		TemplateOrderShipped: func(a TemplateArgs) string {
			return fmt.Sprintf("Ваш заказ #%s отправлен! Ожидайте доставку.", a.OrderNumber)
		},
	},
}
