package config

type PaymentConfig struct {
	Razorpay *RazorpayConfig `toml:"razorpay"`
}

type RazorpayConfig struct {
	KeyID     string `toml:"key_id"`
	KeySecret string `toml:"key_secret"`
}

func defaultPaymentConfig() *PaymentConfig {
	return &PaymentConfig{
		Razorpay: &RazorpayConfig{},
	}
}

func loadPaymentConfig(c *PaymentConfig) {
	if c.Razorpay == nil {
		c.Razorpay = &RazorpayConfig{}
	}
	c.Razorpay.KeyID = getEnv("RAZORPAY_KEY_ID", c.Razorpay.KeyID)
	c.Razorpay.KeySecret = getEnv("RAZORPAY_KEY_SECRET", c.Razorpay.KeySecret)
}
