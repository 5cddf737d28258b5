package communication

import "context"

type MessageHandler func(ctx context.Context, sess Session, msg Message) error
