package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"solid-gateway/internal/config"
)

// SMTP 端口常量
const (
	DefaultSMTPPort         = 25
	DefaultSMTPSSLPort      = 465
	DefaultSMTPSTARTTLSPort = 587
	DefaultDialTimeout      = 30 * time.Second
)

// SMTPTransport 负责 SMTP 连接、认证和原始邮件投递
type SMTPTransport struct {
	emailConfig config.Email
}

// NewSMTPTransport 创建 SMTP 传输实例
func NewSMTPTransport(emailConfig config.Email) *SMTPTransport {
	return &SMTPTransport{emailConfig: emailConfig}
}

// resolvePort 未配置端口时按安全协议选择标准端口
func (transport *SMTPTransport) resolvePort() int {
	switch {
	case transport.emailConfig.SMTPPort > 0:
		return transport.emailConfig.SMTPPort
	case transport.emailConfig.UseSSL:
		return DefaultSMTPSSLPort
	case transport.emailConfig.UseTLS:
		return DefaultSMTPSTARTTLSPort
	default:
		return DefaultSMTPPort
	}
}

// SendRaw 投递完整的 MIME 邮件
// recipients 为信封收件人列表
func (transport *SMTPTransport) SendRaw(ctx context.Context, rawMessage []byte, recipients []string) error {
	if len(recipients) == 0 {
		return errors.New("recipients list cannot be empty")
	}

	client, closeFunction, err := transport.dial(ctx)
	if err != nil {
		return err
	}
	defer closeFunction()

	if auth := transport.createAuthentication(); auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp authentication failed: %w", err)
		}
	}

	if err := client.Mail(transport.emailConfig.From); err != nil {
		return fmt.Errorf("MAIL FROM command failed: %w", err)
	}

	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("RCPT TO command failed for %s: %w", recipient, err)
		}
	}

	return writeMessageData(client, rawMessage)
}

// dial 建立 SMTP 客户端连接, SSL 直连或普通连接(可选 STARTTLS)
func (transport *SMTPTransport) dial(ctx context.Context) (*smtp.Client, func(), error) {
	host := transport.emailConfig.SMTPHost
	if host == "" {
		return nil, nil, errors.New("smtp host cannot be empty")
	}

	connection, err := transport.dialConnection(ctx)
	if err != nil {
		return nil, nil, err
	}

	tlsConfig := &tls.Config{ServerName: host}

	if transport.emailConfig.UseSSL {
		tlsConnection := tls.Client(connection, tlsConfig)
		if err := tlsConnection.HandshakeContext(ctx); err != nil {
			_ = connection.Close()
			return nil, nil, fmt.Errorf("ssl handshake failed: %w", err)
		}
		connection = tlsConnection
	}

	client, err := smtp.NewClient(connection, host)
	if err != nil {
		_ = connection.Close()
		return nil, nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	if transport.emailConfig.UseTLS && !transport.emailConfig.UseSSL {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Quit()
			_ = connection.Close()
			return nil, nil, fmt.Errorf("starttls upgrade failed: %w", err)
		}
	}

	closeFunction := func() {
		_ = client.Quit()
		_ = connection.Close()
	}

	return client, closeFunction, nil
}

// dialConnection 建立 TCP 连接, context 带截止时间时以其为准
func (transport *SMTPTransport) dialConnection(ctx context.Context) (net.Conn, error) {
	address := net.JoinHostPort(transport.emailConfig.SMTPHost, strconv.Itoa(transport.resolvePort()))

	dialer := net.Dialer{Timeout: DefaultDialTimeout}
	connection, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial smtp server %s: %w", address, err)
	}

	if deadline, hasDeadline := ctx.Deadline(); hasDeadline {
		_ = connection.SetDeadline(deadline)
	}

	return connection, nil
}

// createAuthentication 仅支持 PLAIN 认证, 未配置账号时匿名发送
func (transport *SMTPTransport) createAuthentication() smtp.Auth {
	if transport.emailConfig.Username == "" || transport.emailConfig.Password == "" {
		return nil
	}

	return smtp.PlainAuth("", transport.emailConfig.Username, transport.emailConfig.Password, transport.emailConfig.SMTPHost)
}

// writeMessageData 发送 DATA 命令并写入邮件内容
func writeMessageData(client *smtp.Client, rawMessage []byte) error {
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err = writer.Write(rawMessage); err != nil {
		return fmt.Errorf("failed to write message body: %w", err)
	}

	if err = writer.Close(); err != nil {
		return fmt.Errorf("failed to close message body: %w", err)
	}

	return nil
}
