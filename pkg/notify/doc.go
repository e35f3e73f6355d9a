// Package notify delivers quota notifications to configured channels.
//
// The Dispatcher implements the quota notifier contract: SendWarning
// and SendGraceReminder return immediately and deliver in the
// background, so a slow or failing channel can never delay or change a
// quota decision. Events at high urgency (>= 90% usage or three or
// fewer grace days remaining) additionally go to the urgent channels.
//
// Two channel implementations ship with the package: a structured log
// channel and an HMAC-signed webhook channel.
package notify
