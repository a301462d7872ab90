/*
包 tlsutil 为远程 worker 的 HTTP 客户端提供统一的 TLS 配置。

  - ClientConfig：TLS 1.2+、仅 AEAD 密码套件，可追加私有 CA
    （worker 配置 ca_file），或在本地调试时跳过校验（insecure_skip_verify）。
  - HTTPClient：带超时与上述 TLS 配置的 http.Client。
*/
package tlsutil
