package messenger

// Instagram and Messenger share the Page Send API body.
type pageMessage struct {
	Recipient     pageRecipient   `json:"recipient"`
	Message       pageMessageBody `json:"message"`
	MessagingType string          `json:"messaging_type"`
}

type pageRecipient struct {
	ID string `json:"id"`
}

type pageMessageBody struct {
	Text       string          `json:"text,omitempty"`
	Attachment *pageAttachment `json:"attachment,omitempty"`
}

type pageAttachment struct {
	Type    string                `json:"type"`
	Payload pageAttachmentPayload `json:"payload"`
}

type pageAttachmentPayload struct {
	URL string `json:"url"`
}

type whatsAppMessage struct {
	MessagingProduct string         `json:"messaging_product"`
	To               string         `json:"to"`
	Type             string         `json:"type"`
	Text             *whatsAppText  `json:"text,omitempty"`
	Audio            *whatsAppMedia `json:"audio,omitempty"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppMedia struct {
	Link string `json:"link"`
}

type sendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
	Messages    []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (r sendResponse) id() string {
	if r.MessageID != "" {
		return r.MessageID
	}
	if len(r.Messages) > 0 {
		return r.Messages[0].ID
	}
	return ""
}

type mediaResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

type graphErrorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}
