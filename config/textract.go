package config

// TextractConfig AWS Textract 识别后端
type TextractConfig struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

func (c *TextractConfig) applyEnv(r *envReader) {
	r.string("AWS_REGION", &c.Region)
	r.string("AWS_ENDPOINT", &c.Endpoint)
	r.string("AWS_ACCESS_KEY", &c.AccessKey)
	r.string("AWS_SECRET_KEY", &c.SecretKey)
}
