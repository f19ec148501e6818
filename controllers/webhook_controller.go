package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vortexlabs/cupido-api/services"
)

// PaymentWebhookPayload mirrors the commerce provider's webhook. The
// provider sends either a nested customer/product object or a flat variant;
// both are accepted.
type PaymentWebhookPayload struct {
	Event    string `json:"event"`
	SaleID   string `json:"sale_id"`
	Customer *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	Product *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"product"`
	// Flat-format fallbacks
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
}

// approvedEventKeywords mark a payment event as confirmed
var approvedEventKeywords = []string{"sale.approved", "sale.completed", "approved", "completed", "paid"}

func isApprovedEvent(event string) bool {
	event = strings.ToLower(event)
	for _, keyword := range approvedEventKeywords {
		if strings.Contains(event, keyword) {
			return true
		}
	}
	return false
}

func (p *PaymentWebhookPayload) orderInfo() services.WebhookOrderInfo {
	info := services.WebhookOrderInfo{
		SaleID:      p.SaleID,
		Event:       p.Event,
		BuyerName:   p.CustomerName,
		BuyerEmail:  p.CustomerEmail,
		BuyerPhone:  p.CustomerPhone,
		ProductID:   p.ProductID,
		ProductName: p.ProductName,
	}
	if p.Customer != nil {
		if p.Customer.Name != "" {
			info.BuyerName = p.Customer.Name
		}
		if p.Customer.Email != "" {
			info.BuyerEmail = p.Customer.Email
		}
		if p.Customer.Phone != "" {
			info.BuyerPhone = p.Customer.Phone
		}
	}
	if p.Product != nil {
		if p.Product.ID != "" {
			info.ProductID = p.Product.ID
		}
		if p.Product.Name != "" {
			info.ProductName = p.Product.Name
		}
	}
	return info
}

// PaymentWebhook handles POST /webhook/payment - payment confirmations for
// message orders. Non-approval events are acknowledged and ignored so the
// provider does not retry them.
func PaymentWebhook(c *gin.Context) {
	var payload PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid webhook payload",
			},
		})
		return
	}

	if !isApprovedEvent(payload.Event) {
		log.Printf("Ignoring payment event: %s", payload.Event)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "ignored",
			"event":   payload.Event,
		})
		return
	}

	order, err := services.CreateOrderFromWebhook(payload.orderInfo())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"order_id":   order.ID,
		"form_token": order.FormToken,
	})
}

// LoyaltyWebhook handles POST /webhook/loyalty - payment confirmations for
// loyalty tests, matched to the buyer by email.
func LoyaltyWebhook(c *gin.Context) {
	var payload PaymentWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid webhook payload",
			},
		})
		return
	}

	if !isApprovedEvent(payload.Event) {
		log.Printf("Ignoring loyalty payment event: %s", payload.Event)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"status":  "ignored",
			"event":   payload.Event,
		})
		return
	}

	info := payload.orderInfo()
	if info.BuyerEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Webhook payload has no buyer email",
			},
		})
		return
	}

	testID, err := services.ActivateLoyaltyTestByEmail(info.BuyerEmail, info.SaleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"test_id": testID,
	})
}

// WhatsAppWebhookPayload is the inbound-message event from the messaging
// gateway. Both the nested key/message structure and flat fallbacks occur.
type WhatsAppWebhookPayload struct {
	Data struct {
		Key struct {
			RemoteJID string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		Phone string `json:"phone"`
		From  string `json:"from"`
		Text  string `json:"text"`
		Body  string `json:"body"`
	} `json:"data"`
}

func (p *WhatsAppWebhookPayload) senderPhone() string {
	jid := p.Data.Key.RemoteJID
	phone := strings.TrimSuffix(strings.TrimSuffix(jid, "@s.whatsapp.net"), "@c.us")
	if phone == "" {
		phone = p.Data.Phone
	}
	if phone == "" {
		phone = p.Data.From
	}
	return phone
}

func (p *WhatsAppWebhookPayload) content() string {
	if p.Data.Message.Conversation != "" {
		return p.Data.Message.Conversation
	}
	if p.Data.Message.ExtendedTextMessage.Text != "" {
		return p.Data.Message.ExtendedTextMessage.Text
	}
	if p.Data.Text != "" {
		return p.Data.Text
	}
	return p.Data.Body
}

// WhatsAppWebhook handles POST /webhook/whatsapp - replies from loyalty-test
// targets. Unmatchable payloads are acknowledged as ignored.
func WhatsAppWebhook(c *gin.Context) {
	var payload WhatsAppWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid webhook payload",
			},
		})
		return
	}

	if payload.Data.Key.FromMe {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored", "reason": "fromMe"})
		return
	}

	phone := payload.senderPhone()
	if phone == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored", "reason": "no_phone"})
		return
	}

	content := payload.content()
	if content == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored", "reason": "no_content"})
		return
	}

	matched, err := services.HandleInboundLoyaltyMessage(phone, content)
	if err != nil {
		respondError(c, err)
		return
	}

	status := "ok"
	if !matched {
		status = "no_match"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": status})
}
