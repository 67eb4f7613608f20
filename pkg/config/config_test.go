package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/shelf/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).NotTo(BeNil())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Version).To(Equal(defaults.Version))
			Expect(cfg.API.Listen).To(Equal(defaults.API.Listen))
			Expect(cfg.Document.Path).To(Equal(defaults.Document.Path))
			Expect(cfg.Retrieval.ChunkSize).To(Equal(defaults.Retrieval.ChunkSize))
			Expect(cfg.Retrieval.ChunkOverlap).To(Equal(defaults.Retrieval.ChunkOverlap))
			Expect(cfg.Retrieval.MaxContextChars).To(Equal(defaults.Retrieval.MaxContextChars))
			Expect(cfg.Retrieval.IndexName).To(Equal(defaults.Retrieval.IndexName))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
			Expect(cfg.Embedding.Dimensions).To(Equal(defaults.Embedding.Dimensions))
			Expect(cfg.VectorStore.Provider).To(Equal(defaults.VectorStore.Provider))
			Expect(cfg.LLM.Provider).To(Equal(defaults.LLM.Provider))
			Expect(cfg.Events.Enabled).To(BeFalse())
		})

		It("loads a valid config file", func() {
			data := `version = 0

[retrieval]
chunk_size = 500
index_name = "faq-embeddings"

[embedding]
dimensions = 768
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Retrieval.ChunkSize).To(Equal(500))
			Expect(cfg.Retrieval.IndexName).To(Equal("faq-embeddings"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("fills unset fields from defaults", func() {
			data := `version = 0

[api]
listen = ":9090"
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":9090"))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Retrieval.ChunkSize).To(Equal(defaults.Retrieval.ChunkSize))
			Expect(cfg.Retrieval.IndexName).To(Equal(defaults.Retrieval.IndexName))
			Expect(cfg.Embedding.Provider).To(Equal(defaults.Embedding.Provider))
		})

		It("rejects unsupported config versions", func() {
			data := `version = 99`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported config version"))
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips a config through disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Retrieval.IndexName = "custom-index"
			cfg.Events.Enabled = true
			cfg.Events.Brokers = "localhost:9092"

			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Retrieval.IndexName).To(Equal("custom-index"))
			Expect(loaded.Events.Enabled).To(BeTrue())
			Expect(loaded.Events.Brokers).To(Equal("localhost:9092"))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("config keys", func() {
		It("gets and sets string keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("document.path", "public/guide.txt")).To(Succeed())

			got, err := c.GetConfigValue("document.path")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("public/guide.txt"))
		})

		It("gets and sets numeric keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("retrieval.max_context_chars", "11000")).To(Succeed())

			got, err := c.GetConfigValue("retrieval.max_context_chars")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("11000"))
		})

		It("rejects non-numeric values for numeric keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("retrieval.chunk_size", "lots")).To(HaveOccurred())
			Expect(c.SetConfigValue("embedding.dimensions", "many")).To(HaveOccurred())
			Expect(c.SetConfigValue("events.enabled", "maybe")).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("nope.nothing", "x")).To(HaveOccurred())
			_, err = c.GetConfigValue("nope.nothing")
			Expect(err).To(HaveOccurred())
		})

		It("exposes every valid key", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"api.listen",
				"document.path",
				"retrieval.chunk_size",
				"retrieval.index_name",
				"embedding.provider",
				"vector_store.provider",
				"llm.provider",
				"events.enabled",
			))

			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
		})
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("serves defaults when nothing else is configured", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("api.listen")).To(Equal(defaults.API.Listen))
		Expect(v.GetInt("retrieval.chunk_size")).To(Equal(defaults.Retrieval.ChunkSize))
		Expect(v.GetString("retrieval.index_name")).To(Equal(defaults.Retrieval.IndexName))
	})

	It("prefers config file values over defaults", func() {
		data := `[retrieval]
index_name = "from-file"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("retrieval.index_name")).To(Equal("from-file"))
	})

	It("prefers environment variables over config file values", func() {
		data := `[retrieval]
index_name = "from-file"
`
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv("SHELF_RETRIEVAL_INDEX_NAME", "from-env")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("retrieval.index_name")).To(Equal("from-env"))
	})
})

var _ = Describe("NewConfigerEnsure", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-ensure-test-*")
		Expect(err).NotTo(HaveOccurred())

		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("creates ~/.shelf so a first-run set has somewhere to write", func() {
		emptyDir := filepath.Join(tmpDir, "empty")
		Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(emptyDir)).To(Succeed())
		DeferCleanup(func() { os.Chdir(origDir) })

		origHome := os.Getenv("HOME")
		Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
		DeferCleanup(func() { os.Setenv("HOME", origHome) })

		c, err := config.NewConfigerEnsure("")
		Expect(err).NotTo(HaveOccurred())
		Expect(c.GetTarget()).To(Equal(filepath.Join(emptyDir, ".shelf", "config.toml")))

		Expect(c.SetConfigValue("retrieval.index_name", "fresh-index")).To(Succeed())

		value, err := c.GetConfigValue("retrieval.index_name")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("fresh-index"))
	})

	It("writes into the override directory when one is given", func() {
		override := filepath.Join(tmpDir, "override")

		c, err := config.NewConfigerEnsure(override)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.GetTarget()).To(Equal(filepath.Join(override, "config.toml")))

		Expect(c.SetConfigValue("api.listen", ":9090")).To(Succeed())

		data, err := os.ReadFile(c.GetTarget())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`listen = ":9090"`))
	})
})
