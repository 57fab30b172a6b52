// Package sparkcentral implements the Sparkcentral Virtual Agent integration surface:
// verification of signed webhook deliveries, tolerant parsing of webhook events, and a
// REST client for acting on conversations.
//
// # Webhook signatures
//
// Every delivery carries an X-Sparkcentral-Signature header holding the lowercase hex
// HMAC-SHA256 of the raw request body, keyed with the hex-decoded shared secret.
// Comparison is constant time.
//
// # Events
//
// Only CONVERSATION_STARTED and INBOUND_MESSAGE_RECEIVED are interpreted. Every other type
// parses to EventOther so new platform events never fail a delivery.
//
// # REST client
//
// The client authenticates with OAuth2 client credentials (scope "client-read") and can upload
// attachments and post composite actions (message, topics, completion) to a conversation.
package sparkcentral
