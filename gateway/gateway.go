/*
 * Copyright 2019 the go-netty project
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package gateway holds the shared Message<->bytes gateway contract (§4.5)
// and the field/what conventions every concrete gateway (raw, slip,
// minitunnel, websocket) uses to carry opaque chunks inside a Message.
package gateway

import (
	"errors"
	"net"

	"github.com/go-netty/go-netty-message/message"
)

// Errors from §7's taxonomy specific to gateway operations.
var (
	ErrResourceLimit = errors.New("gateway: resource limit exceeded")
	ErrBadData       = errors.New("gateway: bad data")
	ErrClosed        = errors.New("gateway: closed")
)

// Field/what conventions shared by every chunk-carrying gateway (§4.5.1).
var (
	WhatRawData = message.FourCC("rddc")

	FieldRawData         = "rd"
	FieldRemoteLocation  = "PR_NAME_PACKET_REMOTE_LOCATION"
	FieldReceiveTimestamp = "ts"
)

// Receiver is the higher-level object a Gateway delivers decoded Messages
// to, per §4.5's mediator contract.
type Receiver interface {
	MessageReceivedFromGateway(msg *message.Message, ctx interface{}) error
}

// ReceiverFunc adapts a plain function to Receiver.
type ReceiverFunc func(msg *message.Message, ctx interface{}) error

// MessageReceivedFromGateway implements Receiver.
func (f ReceiverFunc) MessageReceivedFromGateway(msg *message.Message, ctx interface{}) error {
	return f(msg, ctx)
}

// Gateway is a polymorphic mediator between a transport and a Receiver, per
// §4.5: it runs cooperatively, each call processing up to maxBytes bytes
// and returning, so a single-threaded event loop can fairly multiplex many
// gateways.
type Gateway interface {
	DoInput(receiver Receiver, maxBytes int) (int, error)
	DoOutput(maxBytes int) (int, error)
	HasBytesToOutput() bool
	AddOutgoingMessage(msg *message.Message) error
}

// PacketConn is the minimal packet-transport surface a packet-mode Gateway
// needs — satisfied directly by *net.UDPConn and the teacher's transport
// packages wherever they expose packet semantics.
type PacketConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
}
