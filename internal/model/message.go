package model

// SystemSenderID is the sender of messages generated by the system itself,
// such as patient reminders.
const SystemSenderID uint64 = 0

type Message struct {
	ID                uint64             `json:"id"`
	SenderID          uint64             `json:"sender_id"`
	ReceiverID        uint64             `json:"receiver_id"`
	Content           string             `json:"content"`
	MultimediaContent *MultimediaContent `json:"multimedia_content"`
}

type MessageRequest struct {
	SenderID          uint64             `json:"sender_id"`
	ReceiverID        uint64             `json:"receiver_id"`
	Content           string             `json:"content" validate:"required" message:"Message content cannot be empty"`
	MultimediaContent *MultimediaContent `json:"multimedia_content"`
}
