package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// All lists every table the service owns, in migration order.
func All() []interface{} {
	return []interface{}{
		&Wallet{}, &Transaction{}, &OutboxEvent{},
		&Product{}, &Bid{}, &Feedback{}, &Notification{},
	}
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (w *Wallet) BeforeCreate(*gorm.DB) error       { newID(&w.ID); return nil }
func (t *Transaction) BeforeCreate(*gorm.DB) error  { newID(&t.ID); return nil }
func (p *Product) BeforeCreate(*gorm.DB) error      { newID(&p.ID); return nil }
func (f *Feedback) BeforeCreate(*gorm.DB) error     { newID(&f.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error { newID(&n.ID); return nil }

func (b *Bid) BeforeCreate(*gorm.DB) error {
	newID(&b.ID)
	return nil
}
