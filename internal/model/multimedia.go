package model

// MultimediaContent links optional media to an appointment or message. Each
// URL is independently optional; a nil *MultimediaContent is distinct from
// one whose URLs are all nil.
type MultimediaContent struct {
	ImageURL *string `json:"image_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
	AudioURL *string `json:"audio_url,omitempty"`
}

// Clone returns a deep copy of m.
func (m *MultimediaContent) Clone() *MultimediaContent {
	if m == nil {
		return nil
	}
	return &MultimediaContent{
		ImageURL: cloneString(m.ImageURL),
		VideoURL: cloneString(m.VideoURL),
		AudioURL: cloneString(m.AudioURL),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
