package domain

// ChatEvent is one inbound event from a chat transport. Either Text or
// Callback is set; Callback carries the data payload of a selected option.
type ChatEvent struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text,omitempty"`
	Callback    string `json:"callback,omitempty"`
}

// ReplyOption is a selectable choice attached to a reply. Transports render
// it as a button (or numbered list) and send Data back as a callback.
type ReplyOption struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Reply is the response payload handed back to the transport. Rendering,
// formatting and link construction are the transport's concern; TweetText,
// when set, is the raw text the transport should wrap in a share link.
type Reply struct {
	Text      string        `json:"text"`
	Options   []ReplyOption `json:"options,omitempty"`
	TweetText string        `json:"tweet_text,omitempty"`
}
