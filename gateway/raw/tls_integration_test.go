package raw_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/go-netty/go-netty-message/gateway"
	"github.com/go-netty/go-netty-message/gateway/raw"
	"github.com/go-netty/go-netty-message/message"
	gonettytls "github.com/go-netty/go-netty-message/tls"
)

// selfSignedCert generates an in-memory, loopback-only TLS certificate so
// this test never touches the network beyond 127.0.0.1.
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:         true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}
	return cert
}

// TestRawGatewayOverRealTLSLoopback drives two raw.Gateway instances over a
// genuine TCP+TLS handshake on 127.0.0.1 (no mocked transport), wrapping
// each side's *tls.Conn with tls.NewTransport rather than going through
// tlsFactory.Connect/Listen (which need an external transport.Options this
// module never constructs). This exercises tls/transport.go's transport
// wrapper with a Message actually flowing over it; the gateway writes
// through the wrapped *tls.Conn's Write.
func TestRawGatewayOverRealTLSLoopback(t *testing.T) {
	cert := selfSignedCert(t)

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		t.Fatalf("tls.Listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan *tls.Conn, 1)
	serverErrCh := make(chan error, 1)
	go func() {
		conn, aerr := ln.Accept()
		if aerr != nil {
			serverErrCh <- aerr
			return
		}
		tconn := conn.(*tls.Conn)
		serverErrCh <- tconn.Handshake()
		serverConnCh <- tconn
	}()

	clientConn, err := tls.Dial("tcp", ln.Addr().String(), &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("tls.Dial: %v", err)
	}
	defer clientConn.Close()
	if err := clientConn.Handshake(); err != nil {
		t.Fatalf("client Handshake: %v", err)
	}

	if err := <-serverErrCh; err != nil {
		t.Fatalf("server Handshake: %v", err)
	}
	serverConn := <-serverConnCh
	defer serverConn.Close()

	clientTransport := gonettytls.NewTransport(clientConn)
	serverTransport := gonettytls.NewTransport(serverConn)

	clientGateway := raw.NewStream(clientTransport, 0)
	serverGateway := raw.NewStream(serverTransport, 0)

	payload := []byte("hello over a real TLS loopback")
	msg := message.New(gateway.WhatRawData)
	if err := msg.AddRaw(gateway.FieldRawData, payload); err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	if err := clientGateway.AddOutgoingMessage(msg); err != nil {
		t.Fatalf("AddOutgoingMessage: %v", err)
	}
	if _, err := clientGateway.DoOutput(1 << 20); err != nil {
		t.Fatalf("client DoOutput: %v", err)
	}

	received := make(chan []byte, 1)
	recv := gateway.ReceiverFunc(func(m *message.Message, _ interface{}) error {
		raw, rerr := m.GetRaw(gateway.FieldRawData, 0)
		if rerr != nil {
			return rerr
		}
		received <- append([]byte(nil), raw...)
		return nil
	})

	_ = serverConn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := serverGateway.DoInput(recv, 1<<20); err != nil {
		t.Fatalf("server DoInput: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != string(payload) {
			t.Fatalf("got %q, want %q", got, payload)
		}
	default:
		t.Fatalf("no message delivered")
	}
}
