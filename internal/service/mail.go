package service

import "context"

// MarkRead removes the UNREAD label from a message.
func MarkRead(ctx context.Context, m Mail, id string) error {
	return m.ModifyLabels(ctx, id, nil, []string{LabelUnread})
}

// MarkUnread adds the UNREAD label to a message.
func MarkUnread(ctx context.Context, m Mail, id string) error {
	return m.ModifyLabels(ctx, id, []string{LabelUnread}, nil)
}

// AddLabels adds labels to a message.
func AddLabels(ctx context.Context, m Mail, id string, labels ...string) error {
	return m.ModifyLabels(ctx, id, labels, nil)
}

// RemoveLabels removes labels from a message.
func RemoveLabels(ctx context.Context, m Mail, id string, labels ...string) error {
	return m.ModifyLabels(ctx, id, nil, labels)
}

// ListAndFetch lists messages for q and fetches each of them in format.
// It returns the fetched messages together with the listing page.
func ListAndFetch(ctx context.Context, m Mail, q MessageQuery, format MessageFormat) ([]Message, MessagePage, error) {
	page, err := m.ListMessages(ctx, q)
	if err != nil {
		return nil, MessagePage{}, err
	}
	if len(page.Messages) == 0 {
		return nil, page, nil
	}
	ids := make([]string, len(page.Messages))
	for i, ref := range page.Messages {
		ids[i] = ref.ID
	}
	msgs, err := m.FetchMessages(ctx, ids, format)
	if err != nil {
		return nil, MessagePage{}, err
	}
	return msgs, page, nil
}
