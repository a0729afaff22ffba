// Package notify delivers rendered reminder messages to notification targets.
//
// Each Sender handles one domain.Channel and reports the outcome of every
// attempt as a domain.DeliveryReceipt; send failures are carried in the
// receipt rather than returned as errors.
package notify
